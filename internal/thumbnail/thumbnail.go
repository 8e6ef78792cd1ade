// Package thumbnail renders small png previews of uploaded images.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"slices"

	"github.com/nfnt/resize"
)

// Thumbnails fit inside a quarter of 1080p and keep the source aspect ratio.
const (
	MaxWidth  uint = 1920 / 4
	MaxHeight uint = 1080 / 4
)

// ContentType of every generated thumbnail.
const ContentType = "image/png"

// SupportedMimeTypes lists the upload types Make can decode.
var SupportedMimeTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Supported reports whether a thumbnail can be made from mime.
func Supported(mime string) bool {
	return slices.Contains(SupportedMimeTypes, mime)
}

// Make creates a png thumbnail from an original upload.
func Make(mime string, original io.Reader) ([]byte, error) {
	var img image.Image

	switch mime {
	case "image/jpeg":
		dec, err := jpeg.Decode(original)
		if err != nil {
			return nil, fmt.Errorf("decode jpeg: %w", err)
		}
		img = dec
	case "image/png":
		dec, err := png.Decode(original)
		if err != nil {
			return nil, fmt.Errorf("decode png: %w", err)
		}
		img = dec
	case "image/gif":
		dec, err := gif.Decode(original)
		if err != nil {
			return nil, fmt.Errorf("decode gif: %w", err)
		}
		img = dec
	default:
		return nil, fmt.Errorf("mime type '%s' can't be used to create thumbnails", mime)
	}

	thumbImg := resize.Thumbnail(MaxWidth, MaxHeight, img, resize.Lanczos3)
	buff := new(bytes.Buffer)
	if err := png.Encode(buff, thumbImg); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buff.Bytes(), nil
}
