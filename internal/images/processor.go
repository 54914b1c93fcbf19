package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultFileName names a normalized image whose source had no name.
	DefaultFileName = "normalized_image.jpg"
	// DefaultMaxPixels caps the decoded size of an upload at 50 megapixels.
	DefaultMaxPixels = 50_000_000
)

var (
	// ErrEmptyImage is returned when no image bytes were supplied.
	ErrEmptyImage = errors.New("image data is empty")
	// ErrUnsupportedContentType is returned for anything but JPEG, PNG or WebP.
	ErrUnsupportedContentType = errors.New("only JPEG, PNG and WebP images are allowed")
	// ErrDecodeFailed is returned when the bytes do not decode as an image.
	ErrDecodeFailed = errors.New("image could not be decoded")
	// ErrImageTooLarge is returned when the header declares more pixels than allowed.
	ErrImageTooLarge = errors.New("image dimensions exceed the allowed pixel count")
)

var allowedImageContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// DetectContentType sniffs the image type and reports whether it is accepted.
func DetectContentType(imageData []byte) (string, bool) {
	if len(imageData) == 0 {
		return "", false
	}

	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(imageData)))
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	_, ok := allowedImageContentTypes[contentType]
	return contentType, ok
}

// Processor decodes, resizes and re-encodes captured images.
type Processor struct {
	quality   int
	maxPixels int
}

// NewProcessor creates a processor that encodes JPEG at the given 1-100 quality.
func NewProcessor(quality int) *Processor {
	if quality < 1 || quality > 100 {
		quality = 80
	}
	return &Processor{quality: quality, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels sets the largest width*height Decode accepts. Non-positive
// values keep the default.
func (p *Processor) WithMaxPixels(n int) *Processor {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

// Decode decodes the image honoring EXIF orientation. The header is read
// first so oversized images are rejected before any pixel buffer is allocated.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(p.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return img, nil
}

// Resize scales img to exactly width x height and returns JPEG bytes.
func (p *Processor) Resize(img image.Image, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// normalizedFileName keeps the client's base name but with a .jpg extension,
// since normalized images are always JPEG.
func normalizedFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" {
		return DefaultFileName
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return DefaultFileName
	}
	return stem + ".jpg"
}
