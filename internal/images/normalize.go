package images

import (
	"errors"
	"math"

	"github.com/johnrirwin/fieldreport/internal/models"
)

// DefaultBound is the longest-side size, in pixels, of every normalized image.
const DefaultBound = 512

// ErrInvalidDimensions is returned when a source image has a non-positive side.
var ErrInvalidDimensions = errors.New("image dimensions must be positive")

// Normalize computes target dimensions whose longer side equals bound while
// keeping the source aspect ratio. Landscape sources pin the width; portrait
// and square sources pin the height.
func Normalize(width, height, bound int) (int, int, error) {
	if width <= 0 || height <= 0 || bound <= 0 {
		return 0, 0, ErrInvalidDimensions
	}

	if width > height {
		return bound, scaleSide(height, width, bound), nil
	}
	return scaleSide(width, height, bound), bound, nil
}

// scaleSide rounds short/long*bound to the nearest pixel, never below 1.
func scaleSide(short, long, bound int) int {
	v := int(math.Round(float64(short) / float64(long) * float64(bound)))
	if v < 1 {
		return 1
	}
	return v
}

// NormalizeAsset maps an acquired asset to its normalized descriptor. The
// returned image carries no pixel data yet.
func NormalizeAsset(asset models.ImageAsset, bound int) (*models.NormalizedImage, error) {
	w, h, err := Normalize(asset.Width, asset.Height, bound)
	if err != nil {
		return nil, err
	}
	return &models.NormalizedImage{
		SourceURI:    asset.SourceURI,
		TargetWidth:  w,
		TargetHeight: h,
		MimeType:     "image/jpeg",
		FileName:     normalizedFileName(asset.FileName),
	}, nil
}
