// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package image holds the decoded pixel storage used by the image pipeline.
//
// ImageBuf is always 8-bit RGBA, non-premultiplied, tightly packed unless a
// stride is given. It converts to and from the standard library image types
// without copying where the layouts agree.
package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Common errors for image buffers.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("image: data buffer too small")
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// ImageBuf is a decoded RGBA8 bitmap.
//
// ImageBuf is safe for concurrent reads. Writers need external
// synchronization; the canvas package enforces copy-on-write above this type.
type ImageBuf struct {
	data   []byte
	width  int
	height int
	stride int
}

// NewImageBuf allocates a zeroed (transparent) buffer.
func NewImageBuf(width, height int) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	stride := width * BytesPerPixel
	return &ImageBuf{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
	}, nil
}

// FromRaw wraps existing RGBA8 data without copying.
func FromRaw(data []byte, width, height, stride int) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if stride < width*BytesPerPixel {
		stride = width * BytesPerPixel
	}
	if len(data) < stride*(height-1)+width*BytesPerPixel {
		return nil, ErrDataTooSmall
	}
	return &ImageBuf{data: data, width: width, height: height, stride: stride}, nil
}

// FromStdImage converts any image.Image into an ImageBuf.
// *image.NRGBA is adopted without conversion; other types are drawn into a
// fresh NRGBA buffer.
func FromStdImage(img image.Image) *ImageBuf {
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return &ImageBuf{data: n.Pix, width: b.Dx(), height: b.Dy(), stride: n.Stride}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &ImageBuf{data: dst.Pix, width: b.Dx(), height: b.Dy(), stride: dst.Stride}
}

// ToStdImage returns an *image.NRGBA view sharing the buffer's pixels.
func (b *ImageBuf) ToStdImage() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.data,
		Stride: b.stride,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// Clone creates a deep, tightly packed copy.
func (b *ImageBuf) Clone() *ImageBuf {
	stride := b.width * BytesPerPixel
	data := make([]byte, stride*b.height)
	for y := range b.height {
		copy(data[y*stride:(y+1)*stride], b.RowBytes(y))
	}
	return &ImageBuf{data: data, width: b.width, height: b.height, stride: stride}
}

// Width returns the image width in pixels.
func (b *ImageBuf) Width() int { return b.width }

// Height returns the image height in pixels.
func (b *ImageBuf) Height() int { return b.height }

// Stride returns the number of bytes per row.
func (b *ImageBuf) Stride() int { return b.stride }

// Bounds returns (width, height).
func (b *ImageBuf) Bounds() (int, int) { return b.width, b.height }

// Data returns the raw pixel slice.
func (b *ImageBuf) Data() []byte { return b.data }

// ByteSize returns the size of the pixel data in bytes.
func (b *ImageBuf) ByteSize() int { return len(b.data) }

// IsEmpty reports whether the buffer has no pixels.
func (b *ImageBuf) IsEmpty() bool { return b == nil || b.width == 0 || b.height == 0 }

// RowBytes returns the packed pixels of row y, or nil when out of range.
func (b *ImageBuf) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	return b.data[start : start+b.width*BytesPerPixel]
}

// GetRGBA returns the pixel at (x, y). Out-of-range reads return zero.
func (b *ImageBuf) GetRGBA(x, y int) (r, g, bl, a uint8) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0, 0, 0, 0
	}
	off := y*b.stride + x*BytesPerPixel
	return b.data[off], b.data[off+1], b.data[off+2], b.data[off+3]
}

// SetRGBA writes the pixel at (x, y). Out-of-range writes are ignored.
func (b *ImageBuf) SetRGBA(x, y int, r, g, bl, a uint8) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	off := y*b.stride + x*BytesPerPixel
	b.data[off] = r
	b.data[off+1] = g
	b.data[off+2] = bl
	b.data[off+3] = a
}

// Fill sets every pixel to c.
func (b *ImageBuf) Fill(c color.NRGBA) {
	for y := range b.height {
		row := b.RowBytes(y)
		for x := 0; x < len(row); x += BytesPerPixel {
			row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, c.A
		}
	}
}

// Equal reports whether two buffers have the same size and pixels.
func (b *ImageBuf) Equal(o *ImageBuf) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.width != o.width || b.height != o.height {
		return false
	}
	for y := range b.height {
		if !bytes.Equal(b.RowBytes(y), o.RowBytes(y)) {
			return false
		}
	}
	return true
}
