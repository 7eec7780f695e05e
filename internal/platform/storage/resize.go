package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/nfnt/resize"
)

const (
	// MaxImageWidth bounds the stored full-size image.
	MaxImageWidth = 1600
	// ThumbnailSize is the bounding box for listing thumbnails.
	ThumbnailSize = 400
	jpegQuality   = 85
)

// ErrUnsupportedImage is returned for anything other than JPEG or PNG.
var ErrUnsupportedImage = errors.New("storage: unsupported image format")

// PreparedImage holds the re-encoded upload and its thumbnail.
type PreparedImage struct {
	Full        []byte
	Thumbnail   []byte
	ContentType string
	Width       int
	Height      int
}

// PrepareImage decodes a JPEG or PNG upload, caps its width, and renders a
// thumbnail. Both outputs are JPEG.
func PrepareImage(data []byte) (PreparedImage, error) {
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png":
	default:
		return PreparedImage{}, ErrUnsupportedImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	full := img
	if img.Bounds().Dx() > MaxImageWidth {
		full = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}
	thumb := resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3)

	fullBytes, err := encodeJPEG(full)
	if err != nil {
		return PreparedImage{}, err
	}
	thumbBytes, err := encodeJPEG(thumb)
	if err != nil {
		return PreparedImage{}, err
	}
	return PreparedImage{
		Full:        fullBytes,
		Thumbnail:   thumbBytes,
		ContentType: "image/jpeg",
		Width:       full.Bounds().Dx(),
		Height:      full.Bounds().Dy(),
	}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("storage: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
