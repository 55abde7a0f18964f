// Package imaging bounds and re-encodes uploaded chat images.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

var (
	ErrTooLarge = errors.New("image is too large")
	ErrInvalid  = errors.New("invalid image file")
)

// jpegQuality matches the original lossy re-encode setting.
const jpegQuality = 80

// Compressed is a bounded, re-encoded image ready for storage and for
// the vision data URI.
type Compressed struct {
	Data     []byte
	Width    int
	Height   int
	ByteSize int
}

// DataURI renders the image as a base64 data URI.
func (c *Compressed) DataURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(c.Data)
}

// Compress validates the upload, downsamples it to maxEdge pixels on
// the longest side, and re-encodes as JPEG. Oversized or undecodable
// input yields a descriptive error, never a panic.
func Compress(data []byte, maxBytes, maxEdge int) (*Compressed, error) {
	if len(data) > maxBytes {
		return nil, fmt.Errorf("%w (max %dMB)", ErrTooLarge, maxBytes/(1024*1024))
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalid
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrInvalid
	}

	if width > maxEdge || height > maxEdge {
		width, height = fit(width, height, maxEdge)
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	encoded := buf.Bytes()
	return &Compressed{
		Data:     encoded,
		Width:    width,
		Height:   height,
		ByteSize: len(encoded),
	}, nil
}

// IsUserError reports whether err is a user-actionable upload error.
func IsUserError(err error) bool {
	return errors.Is(err, ErrTooLarge) || errors.Is(err, ErrInvalid)
}

// fit scales (w, h) so the longest edge equals maxEdge, preserving
// aspect ratio with a 1px floor.
func fit(w, h, maxEdge int) (int, int) {
	if w >= h {
		scaled := h * maxEdge / w
		if scaled < 1 {
			scaled = 1
		}
		return maxEdge, scaled
	}
	scaled := w * maxEdge / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxEdge
}
