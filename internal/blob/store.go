// Package blob stores report images and hands out durable URLs for them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is the narrow blob-store surface the submission pipeline needs.
type Store interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) error
	URL(ctx context.Context, objectPath string) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// ObjectPath builds "<prefix>/<unixMillis>_<basename>". Two uploads of the
// same file name in the same millisecond collide.
func ObjectPath(prefix string, at time.Time, fileName string) string {
	prefix = strings.Trim(prefix, "/")
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	name := fmt.Sprintf("%d_%s", at.UnixMilli(), base)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
