// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package canvas provides CanvasImage, the renderable result of a decode.
//
// A CanvasImage is a handle onto shared storage. Clone is cheap and every
// holder (the canvas-image cache, each consumer) keeps its own handle, so one
// holder releasing or mutating never affects another. Mutations copy the
// storage first when it is shared.
package canvas

import (
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	intImage "github.com/gogpu/ace/internal/image"
)

// Compressed is a GPU-ready compressed texture block.
type Compressed struct {
	Format  gputypes.TextureFormat
	Width   int
	Height  int
	Payload []byte
}

// storage is the pixel state shared between clones.
type storage struct {
	refs       atomic.Int32
	buf        *intImage.ImageBuf
	compressed *Compressed
}

func newStorage(buf *intImage.ImageBuf, c *Compressed) *storage {
	st := &storage{buf: buf, compressed: c}
	st.refs.Store(1)
	return st
}

// CanvasImage is a decoded bitmap or a compressed texture block.
// A single CanvasImage must not be used from several goroutines at once;
// hand each goroutine its own Clone.
type CanvasImage struct {
	st       *storage
	released atomic.Bool
}

var _ gpucontext.Texture = (*CanvasImage)(nil)

// New wraps a decoded bitmap. The CanvasImage takes ownership of buf.
func New(buf *intImage.ImageBuf) *CanvasImage {
	return &CanvasImage{st: newStorage(buf, nil)}
}

// NewCompressed wraps a compressed block; no pixel data is attached.
func NewCompressed(c Compressed) *CanvasImage {
	return &CanvasImage{st: newStorage(nil, &c)}
}

// Clone returns a new handle sharing the same storage.
func (c *CanvasImage) Clone() *CanvasImage {
	c.st.refs.Add(1)
	return &CanvasImage{st: c.st}
}

// Release drops this handle's reference. Storage is freed when the last
// handle is released. Release is idempotent per handle.
func (c *CanvasImage) Release() {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return
	}
	if c.st.refs.Add(-1) == 0 {
		c.st.buf = nil
		c.st.compressed = nil
	}
}

// Released reports whether Release was called on this handle.
func (c *CanvasImage) Released() bool { return c.released.Load() }

// Width returns the image width in pixels.
func (c *CanvasImage) Width() int {
	if c.st.compressed != nil {
		return c.st.compressed.Width
	}
	if c.st.buf != nil {
		return c.st.buf.Width()
	}
	return 0
}

// Height returns the image height in pixels.
func (c *CanvasImage) Height() int {
	if c.st.compressed != nil {
		return c.st.compressed.Height
	}
	if c.st.buf != nil {
		return c.st.buf.Height()
	}
	return 0
}

// Bitmap returns the decoded pixels for reading, or nil for compressed-only
// images. Callers must not write to the result; use MutableBitmap.
func (c *CanvasImage) Bitmap() *intImage.ImageBuf { return c.st.buf }

// Compressed returns the compressed block, if any.
func (c *CanvasImage) Compressed() (Compressed, bool) {
	if c.st.compressed == nil {
		return Compressed{}, false
	}
	return *c.st.compressed, true
}

// IsCompressed reports whether the image carries a compressed block and no
// pixel data.
func (c *CanvasImage) IsCompressed() bool {
	return c.st.compressed != nil && c.st.buf == nil
}

// ByteSize approximates the memory held by the storage.
func (c *CanvasImage) ByteSize() int {
	n := 0
	if c.st.buf != nil {
		n += c.st.buf.ByteSize()
	}
	if c.st.compressed != nil {
		n += len(c.st.compressed.Payload)
	}
	return n
}

// SharesStorage reports whether c and o are clones of the same storage.
func (c *CanvasImage) SharesStorage(o *CanvasImage) bool { return c.st == o.st }

// MutableBitmap returns pixels this handle may write, detaching from other
// clones first.
func (c *CanvasImage) MutableBitmap() *intImage.ImageBuf {
	if c.st.buf == nil {
		return nil
	}
	c.detach()
	return c.st.buf
}

// SetCompressed attaches a compressed block, detaching from other clones
// first. Existing pixels are kept.
func (c *CanvasImage) SetCompressed(cd Compressed) {
	c.detach()
	c.st.compressed = &cd
}

func (c *CanvasImage) detach() {
	if c.st.refs.Load() == 1 {
		return
	}
	var buf *intImage.ImageBuf
	if c.st.buf != nil {
		buf = c.st.buf.Clone()
	}
	var cd *Compressed
	if c.st.compressed != nil {
		cp := *c.st.compressed
		cd = &cp
	}
	old := c.st
	c.st = newStorage(buf, cd)
	old.refs.Add(-1)
}
