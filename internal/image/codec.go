// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF
	_ "image/jpeg" // register JPEG
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// Codec errors.
var (
	// ErrEmptyData is returned when there are no encoded bytes to decode.
	ErrEmptyData = errors.New("image: empty data")

	// ErrUnsupportedFormat is returned when no registered codec recognizes the data.
	ErrUnsupportedFormat = errors.New("image: unsupported format")
)

// Config is the header-level description of an encoded image.
type Config struct {
	Width  int
	Height int
	Format string
}

// DecodeConfig parses only the container header of data.
func DecodeConfig(data []byte) (Config, error) {
	if len(data) == 0 {
		return Config{}, ErrEmptyData
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Config{}, ErrUnsupportedFormat
		}
		return Config{}, fmt.Errorf("image: decode config: %w", err)
	}
	return Config{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode fully decodes data (first frame for animated containers).
func Decode(data []byte) (*ImageBuf, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyData
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("image: decode: %w", err)
	}
	buf := FromStdImage(img)
	if buf == nil {
		return nil, format, ErrInvalidDimensions
	}
	return buf, format, nil
}

// EncodePNG encodes the buffer as PNG to w.
func (b *ImageBuf) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, b.ToStdImage()); err != nil {
		return fmt.Errorf("image: encode PNG: %w", err)
	}
	return nil
}

// EncodeToBytes encodes the buffer as PNG and returns the bytes.
func (b *ImageBuf) EncodeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
