// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package astc

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/ace/internal/canvas"
	intImage "github.com/gogpu/ace/internal/image"
)

// Compressor turns a decoded bitmap into a GPU-uploadable compressed block.
type Compressor interface {
	// Available reports whether compression can run on this host.
	Available() bool

	// Compress encodes buf. It must not retain buf.
	Compress(buf *intImage.ImageBuf) (canvas.Compressed, error)
}

// Decompressor recovers pixels from a block for software rendering paths.
type Decompressor interface {
	Decompress(c canvas.Compressed) (*intImage.ImageBuf, error)
}

// ZstdCompressor supercompresses RGBA8 rows with zstd. It stands in for a
// hardware ASTC encoder on hosts without one: blocks are tagged
// TextureFormatRGBA8Unorm and upload after a cheap inflate instead of a full
// image decode.
//
// ZstdCompressor is safe for concurrent use.
type ZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var (
	_ Compressor   = (*ZstdCompressor)(nil)
	_ Decompressor = (*ZstdCompressor)(nil)
)

// NewZstdCompressor creates a compressor using the fastest zstd level.
func NewZstdCompressor() (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("astc: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("astc: zstd decoder: %w", err)
	}
	return &ZstdCompressor{enc: enc, dec: dec}, nil
}

// Available always reports true; zstd runs everywhere.
func (z *ZstdCompressor) Available() bool { return z != nil && z.enc != nil }

// Compress packs buf's rows and compresses them.
func (z *ZstdCompressor) Compress(buf *intImage.ImageBuf) (canvas.Compressed, error) {
	if buf.IsEmpty() {
		return canvas.Compressed{}, intImage.ErrInvalidDimensions
	}
	rowLen := buf.Width() * intImage.BytesPerPixel
	raw := make([]byte, 0, rowLen*buf.Height())
	for y := range buf.Height() {
		raw = append(raw, buf.RowBytes(y)...)
	}
	return canvas.Compressed{
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Width:   buf.Width(),
		Height:  buf.Height(),
		Payload: z.enc.EncodeAll(raw, nil),
	}, nil
}

// Decompress inflates a block produced by Compress.
func (z *ZstdCompressor) Decompress(c canvas.Compressed) (*intImage.ImageBuf, error) {
	if c.Format != gputypes.TextureFormatRGBA8Unorm {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, c.Format)
	}
	raw, err := z.dec.DecodeAll(c.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("astc: zstd decode: %w", err)
	}
	return intImage.FromRaw(raw, c.Width, c.Height, c.Width*intImage.BytesPerPixel)
}

// Close releases the zstd encoder and decoder.
func (z *ZstdCompressor) Close() {
	_ = z.enc.Close()
	z.dec.Close()
}
