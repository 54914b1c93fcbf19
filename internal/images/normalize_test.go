package images

import (
	"errors"
	"testing"

	"github.com/johnrirwin/fieldreport/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{name: "landscape 4:3", width: 4000, height: 3000, wantW: 512, wantH: 384},
		{name: "portrait 3:4", width: 3000, height: 4000, wantW: 384, wantH: 512},
		{name: "square", width: 1000, height: 1000, wantW: 512, wantH: 512},
		{name: "small square upscales", width: 10, height: 10, wantW: 512, wantH: 512},
		{name: "landscape rounds", width: 1920, height: 1081, wantW: 512, wantH: 288},
		{name: "portrait 9:16", width: 1080, height: 1920, wantW: 288, wantH: 512},
		{name: "extreme strip keeps one pixel", width: 100000, height: 1, wantW: 512, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := Normalize(tt.width, tt.height, DefaultBound)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("Normalize(%d, %d) = %dx%d, want %dx%d", tt.width, tt.height, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNormalize_LongestSideIsBound(t *testing.T) {
	for w := 1; w <= 2000; w += 37 {
		for h := 1; h <= 2000; h += 41 {
			tw, th, err := Normalize(w, h, DefaultBound)
			if err != nil {
				t.Fatalf("Normalize(%d, %d): %v", w, h, err)
			}
			longest := tw
			if th > longest {
				longest = th
			}
			if longest != DefaultBound {
				t.Fatalf("Normalize(%d, %d) = %dx%d, longest side %d", w, h, tw, th, longest)
			}
			if tw <= 0 || th <= 0 {
				t.Fatalf("Normalize(%d, %d) = %dx%d, want positive sides", w, h, tw, th)
			}
		}
	}
}

func TestNormalize_InvalidDimensions(t *testing.T) {
	cases := [][2]int{{0, 100}, {100, 0}, {-1, 50}, {50, -1}, {0, 0}}
	for _, c := range cases {
		if _, _, err := Normalize(c[0], c[1], DefaultBound); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("Normalize(%d, %d) error = %v, want ErrInvalidDimensions", c[0], c[1], err)
		}
	}
}

func TestNormalizeAsset(t *testing.T) {
	img, err := NormalizeAsset(models.ImageAsset{
		SourceURI: "upload://site.png",
		Width:     800,
		Height:    600,
		FileName:  "site.png",
	}, DefaultBound)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.TargetWidth != 512 || img.TargetHeight != 384 {
		t.Errorf("target = %dx%d, want 512x384", img.TargetWidth, img.TargetHeight)
	}
	if img.FileName != "site.jpg" {
		t.Errorf("FileName = %q, want site.jpg", img.FileName)
	}
	if img.SourceURI != "upload://site.png" {
		t.Errorf("SourceURI = %q", img.SourceURI)
	}
}
