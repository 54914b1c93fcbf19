package images

import (
	"errors"
	"fmt"
)

// Source is where an image came from.
type Source string

const (
	SourceCamera  Source = "camera"
	SourceLibrary Source = "library"
)

// MediaTypePhoto is the only media type accepted by capture.
const MediaTypePhoto = "photo"

// ErrInvalidOptions is returned by CaptureOptions.Validate.
var ErrInvalidOptions = errors.New("invalid capture options")

// CaptureOptions configures a camera capture or library pick.
type CaptureOptions struct {
	Source         Source
	MediaType      string
	Quality        float64
	MaxWidth       int
	MaxHeight      int
	SaveToPhotos   bool
	IncludeExtra   bool
	SelectionLimit int
}

// DefaultCaptureOptions returns the options used by the capture flow.
func DefaultCaptureOptions(source Source) CaptureOptions {
	opts := CaptureOptions{
		Source:       source,
		MediaType:    MediaTypePhoto,
		Quality:      0.8,
		MaxWidth:     DefaultBound,
		MaxHeight:    DefaultBound,
		IncludeExtra: true,
	}
	switch source {
	case SourceCamera:
		opts.SaveToPhotos = true
	case SourceLibrary:
		opts.SelectionLimit = 1
	}
	return opts
}

// ParseSource maps a request value to a Source; empty means library.
func ParseSource(raw string) (Source, error) {
	switch Source(raw) {
	case "", SourceLibrary:
		return SourceLibrary, nil
	case SourceCamera:
		return SourceCamera, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidOptions, raw)
	}
}

// Validate checks that the options describe a single-photo capture.
func (o CaptureOptions) Validate() error {
	if o.Source != SourceCamera && o.Source != SourceLibrary {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidOptions, o.Source)
	}
	if o.MediaType != MediaTypePhoto {
		return fmt.Errorf("%w: media type %q not supported", ErrInvalidOptions, o.MediaType)
	}
	if o.Quality <= 0 || o.Quality > 1 {
		return fmt.Errorf("%w: quality %.2f out of range", ErrInvalidOptions, o.Quality)
	}
	if o.MaxWidth <= 0 || o.MaxHeight <= 0 {
		return fmt.Errorf("%w: max dimensions must be positive", ErrInvalidOptions)
	}
	if o.Source == SourceLibrary && o.SelectionLimit != 1 {
		return fmt.Errorf("%w: selection limit must be 1", ErrInvalidOptions)
	}
	return nil
}

// Bound is the longest side a normalized image may have.
func (o CaptureOptions) Bound() int {
	if o.MaxWidth > o.MaxHeight {
		return o.MaxWidth
	}
	return o.MaxHeight
}

// JPEGQuality converts Quality to the 1-100 scale used by encoders.
func (o CaptureOptions) JPEGQuality() int {
	q := int(o.Quality*100 + 0.5)
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
