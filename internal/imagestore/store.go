// Package imagestore hosts pet images on a remote object store.
package imagestore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 5 << 20

// ErrUnsupportedType is returned for images that are not JPEG, PNG or WebP.
var ErrUnsupportedType = errors.New("only JPEG, PNG, and WebP images are allowed")

// ErrTooLarge is returned for images over MaxImageBytes.
var ErrTooLarge = errors.New("image must be 5MB or smaller")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Upload is an image ready to be stored.
type Upload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// Image references a stored asset. Key is what Delete expects.
type Image struct {
	URL string
	Key string
}

// Store uploads and removes images.
type Store interface {
	Upload(ctx context.Context, upload Upload) (Image, error)
	Delete(ctx context.Context, key string) error
}

// Sniff validates the leading bytes of an image and returns its content type.
func Sniff(data []byte, size int64) (string, error) {
	if size > MaxImageBytes {
		return "", ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return "", ErrUnsupportedType
	}
	return contentType, nil
}

// ObjectKey builds "<prefix>/pets/<uuid><ext>".
func ObjectKey(prefix, contentType string) string {
	return path.Join(prefix, "pets", uuid.NewString()+extensions[contentType])
}
