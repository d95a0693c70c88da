// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package object parses encoded image bytes into cacheable metadata.
//
// An Object records what a source is (intrinsic size, frame count, raster or
// vector) without holding decoded pixels. It carries its encoded Data only
// until the pipeline has delivered it to the waiting consumers; the cached
// Object keeps metadata alone.
package object

import (
	"errors"
	"sync"

	"github.com/srwiley/oksvg"

	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/source"
)

// Errors returned by Build.
var (
	// ErrNoData is returned when there are no encoded bytes to parse.
	ErrNoData = errors.New("object: no image data")

	// ErrParse is returned when the header cannot be parsed or describes a
	// non-positive size.
	ErrParse = errors.New("object: parse failure")
)

// Kind classifies an Object.
type Kind uint8

const (
	// KindStatic is a single-frame raster image.
	KindStatic Kind = iota
	// KindAnimated is a raster image with more than one frame.
	KindAnimated
	// KindSVG is a vector document.
	KindSVG
	// KindPixelMap wraps an already decoded pixel map.
	KindPixelMap
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindAnimated:
		return "animated"
	case KindSVG:
		return "svg"
	case KindPixelMap:
		return "pixelmap"
	default:
		return "unknown"
	}
}

// Object is the parsed description of one source.
type Object struct {
	src    source.Info
	width  int
	height int
	frames int
	kind   Kind
	format string

	mu   sync.Mutex
	data *Data

	svgMu sync.Mutex
	svg   *oksvg.SvgIcon

	pmap *intImage.ImageBuf
}

// Source returns the source the object was built from.
func (o *Object) Source() source.Info { return o.src }

// Size returns the intrinsic size in pixels.
func (o *Object) Size() (int, int) { return o.width, o.height }

// FrameCount returns the number of animation frames (1 for still images).
func (o *Object) FrameCount() int { return o.frames }

// Kind returns the object's classification.
func (o *Object) Kind() Kind { return o.kind }

// Format returns the codec name ("png", "jpeg", "svg", ...).
func (o *Object) Format() string { return o.format }

// Data returns the transient encoded bytes, or nil once cleared.
func (o *Object) Data() *Data {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data
}

// SetData attaches encoded bytes, used when a cached object is decoded again.
func (o *Object) SetData(d *Data) {
	o.mu.Lock()
	o.data = d
	o.mu.Unlock()
}

// ClearData drops the reference to the encoded bytes.
func (o *Object) ClearData() {
	o.mu.Lock()
	o.data = nil
	o.mu.Unlock()
}

// PixelMap returns the wrapped pixel map of a KindPixelMap object.
func (o *Object) PixelMap() *intImage.ImageBuf { return o.pmap }

// WithSVG calls fn with exclusive access to the parsed SVG document.
// Rendering mutates the document transform, so callers never see it outside fn.
func (o *Object) WithSVG(fn func(icon *oksvg.SvgIcon)) bool {
	if o.svg == nil {
		return false
	}
	o.svgMu.Lock()
	defer o.svgMu.Unlock()
	fn(o.svg)
	return true
}
