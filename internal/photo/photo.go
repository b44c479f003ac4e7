// Package photo handles visitor photos: the camera capability, data URI
// encoding and normalisation of captured images.
package photo

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	ErrNoPhoto          = errors.New("photo: no photo captured")
	ErrUnsupportedImage = errors.New("photo: unsupported image")
)

// Bounds of a normalised photo, matching the kiosk camera resolution.
const (
	MaxWidth    = 1280
	MaxHeight   = 720
	JPEGQuality = 85
)

// Camera produces a single snapshot on demand.
type Camera interface {
	CapturePhoto(ctx context.Context) ([]byte, error)
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(ctx context.Context) ([]byte, error)

func (f CameraFunc) CapturePhoto(ctx context.Context) ([]byte, error) { return f(ctx) }

// Normalize decodes raw image bytes, applies EXIF orientation, shrinks the
// image to fit MaxWidth x MaxHeight and re-encodes it as JPEG.
func Normalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrNoPhoto
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURI renders data as a base64 data URI.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI parses a base64 data URI such as "data:image/jpeg;base64,...".
func DecodeDataURI(uri string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data URI", ErrUnsupportedImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data URI payload", ErrUnsupportedImage)
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: data URI is not base64", ErrUnsupportedImage)
	}
	if mime == "" {
		mime = "text/plain"
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return mime, data, nil
}

// IsDataURI reports whether s is an inline data URI rather than a URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}
