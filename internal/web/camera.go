package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"visitorlog/internal/photo"
)

const maxPhotoBytes = 8 << 20

// requestCamera reads the snapshot the kiosk page attached to the sign-in
// form: an uploaded "photo" file, or a "photoData" data URI produced by
// the in-page camera.
type requestCamera struct {
	c *gin.Context
}

func (rc requestCamera) CapturePhoto(context.Context) ([]byte, error) {
	if fh, err := rc.c.FormFile("photo"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxPhotoBytes {
			return nil, photo.ErrUnsupportedImage
		}
		if len(data) > 0 {
			return data, nil
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	uri := rc.c.PostForm("photoData")
	if uri == "" {
		return nil, photo.ErrNoPhoto
	}
	_, data, err := photo.DecodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	return data, nil
}
