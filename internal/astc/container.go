// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package astc stores compressed textures on disk so later loads can skip
// CPU decoding.
//
// Files use the 16-byte ASTC header (magic, block footprint, 24-bit extents)
// followed by an opaque payload. The block footprint names the payload
// format: 4x4x1 is ASTC 4x4, 1x1x1 is zstd-supercompressed RGBA8 rows.
package astc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ace/internal/canvas"
)

// Magic is the little-endian ASTC file signature.
const Magic = 0x5CA1AB13

// HeaderSize is the size of the file header in bytes.
const HeaderSize = 16

// maxExtent is the largest size a 24-bit extent can hold.
const maxExtent = 1<<24 - 1

// Container errors.
var (
	// ErrBadHeader is returned for blobs that do not start with a valid header.
	ErrBadHeader = errors.New("astc: bad header")

	// ErrUnknownFormat is returned for block footprints with no texture format.
	ErrUnknownFormat = errors.New("astc: unknown block format")
)

type footprint struct{ x, y, z uint8 }

var formatFootprints = map[gputypes.TextureFormat]footprint{
	gputypes.TextureFormatASTC4x4Unorm:     {4, 4, 1},
	gputypes.TextureFormatASTC4x4UnormSrgb: {4, 4, 1},
	gputypes.TextureFormatASTC8x8Unorm:     {8, 8, 1},
	gputypes.TextureFormatRGBA8Unorm:       {1, 1, 1},
}

func formatFor(fp footprint) (gputypes.TextureFormat, bool) {
	switch fp {
	case footprint{4, 4, 1}:
		return gputypes.TextureFormatASTC4x4Unorm, true
	case footprint{8, 8, 1}:
		return gputypes.TextureFormatASTC8x8Unorm, true
	case footprint{1, 1, 1}:
		return gputypes.TextureFormatRGBA8Unorm, true
	}
	return 0, false
}

// Encode serializes a compressed block into the file layout.
func Encode(c canvas.Compressed) ([]byte, error) {
	fp, ok := formatFootprints[c.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, c.Format)
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width > maxExtent || c.Height > maxExtent {
		return nil, fmt.Errorf("astc: extent %dx%d out of range", c.Width, c.Height)
	}
	out := make([]byte, HeaderSize+len(c.Payload))
	binary.LittleEndian.PutUint32(out[0:4], Magic)
	out[4], out[5], out[6] = fp.x, fp.y, fp.z
	put24(out[7:10], c.Width)
	put24(out[10:13], c.Height)
	put24(out[13:16], 1)
	copy(out[HeaderSize:], c.Payload)
	return out, nil
}

// Decode parses a blob produced by Encode. The payload aliases blob.
func Decode(blob []byte) (canvas.Compressed, error) {
	if len(blob) < HeaderSize || binary.LittleEndian.Uint32(blob[0:4]) != Magic {
		return canvas.Compressed{}, ErrBadHeader
	}
	format, ok := formatFor(footprint{blob[4], blob[5], blob[6]})
	if !ok {
		return canvas.Compressed{}, ErrUnknownFormat
	}
	w, h := get24(blob[7:10]), get24(blob[10:13])
	if w == 0 || h == 0 {
		return canvas.Compressed{}, ErrBadHeader
	}
	return canvas.Compressed{
		Format:  format,
		Width:   w,
		Height:  h,
		Payload: blob[HeaderSize:],
	}, nil
}

func put24(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func get24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}
