// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package source describes where an image comes from and derives the cache
// keys used by every cache in the pipeline.
package source

import (
	"bytes"
	"math"
	"path"
	"strconv"
	"strings"

	intImage "github.com/gogpu/ace/internal/image"
)

// Type identifies the origin of an image.
type Type uint8

const (
	// TypeFile is a path on the local filesystem.
	TypeFile Type = iota
	// TypeNetwork is an http or https URL.
	TypeNetwork
	// TypeResource is an entry inside an application resource bundle.
	TypeResource
	// TypeMemory is an in-memory encoded byte buffer.
	TypeMemory
	// TypeDataURI is a base64 "data:" URI.
	TypeDataURI
	// TypePixelMap is an already decoded pixel map handle.
	TypePixelMap
	// TypeThumbnail is a file whose small preview is requested.
	TypeThumbnail
)

var typeNames = [...]string{
	TypeFile:      "file",
	TypeNetwork:   "network",
	TypeResource:  "resource",
	TypeMemory:    "memory",
	TypeDataURI:   "datauri",
	TypePixelMap:  "pixelmap",
	TypeThumbnail: "thumbnail",
}

// String returns the registry name of the type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Fit is the resize strategy hint carried with a source.
type Fit uint8

const (
	// FitCover scales to fill the target, cropping overflow.
	FitCover Fit = iota
	// FitContain scales to fit entirely inside the target.
	FitContain
	// FitFill stretches to the target ignoring aspect ratio.
	FitFill
	// FitNone keeps the intrinsic size.
	FitNone
)

// Size is a width/height pair in pixels. Zero or negative components mean
// "unset".
type Size struct {
	Width  float64
	Height float64
}

// IsValid reports whether both components are positive and finite.
func (s Size) IsValid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// Round returns the size rounded to whole pixels.
func (s Size) Round() (int, int) {
	return int(math.Round(s.Width)), int(math.Round(s.Height))
}

func (s Size) String() string {
	return strconv.FormatFloat(s.Width, 'f', -1, 64) + "x" + strconv.FormatFloat(s.Height, 'f', -1, 64)
}

// Info identifies one image origin plus its render hints.
// Info is immutable once constructed; share it by value.
type Info struct {
	typ  Type
	src  string
	data []byte
	pmap *intImage.ImageBuf
	fit  Fit

	bundle string
	module string
	key    string
}

// Option customizes an Info at construction time.
type Option func(*Info)

// WithFit sets the resize strategy hint.
func WithFit(f Fit) Option {
	return func(i *Info) { i.fit = f }
}

// WithBundle sets the resource bundle and module names for resource sources.
func WithBundle(bundle, module string) Option {
	return func(i *Info) {
		i.bundle = bundle
		i.module = module
	}
}

// New builds an Info for a URI or path, inferring the type from its scheme.
// Bare paths are files.
func New(uri string, opts ...Option) Info {
	typ := TypeFile
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		typ = TypeNetwork
	case strings.HasPrefix(lower, "resource://"):
		typ = TypeResource
	case strings.HasPrefix(lower, "data:"):
		typ = TypeDataURI
	case strings.HasPrefix(lower, "thumbnail://"):
		typ = TypeThumbnail
	}
	i := Info{typ: typ, src: uri}
	return i.finish(opts)
}

// FromBytes builds a memory source. The slice must not be modified afterwards.
func FromBytes(data []byte, opts ...Option) Info {
	i := Info{typ: TypeMemory, data: data}
	return i.finish(opts)
}

// FromPixelMap builds a source that wraps an already decoded pixel map.
func FromPixelMap(pm *intImage.ImageBuf, opts ...Option) Info {
	i := Info{typ: TypePixelMap, pmap: pm}
	return i.finish(opts)
}

func (i Info) finish(opts []Option) Info {
	for _, opt := range opts {
		opt(&i)
	}
	i.key = generateKey(&i)
	return i
}

// Type returns the source type.
func (i Info) Type() Type { return i.typ }

// Src returns the URI or path; empty for memory and pixel-map sources.
func (i Info) Src() string { return i.src }

// Data returns the encoded bytes of a memory source.
func (i Info) Data() []byte { return i.data }

// PixelMap returns the pixel map of a pixel-map source.
func (i Info) PixelMap() *intImage.ImageBuf { return i.pmap }

// Fit returns the resize strategy hint.
func (i Info) Fit() Fit { return i.fit }

// Bundle returns the resource bundle and module names.
func (i Info) Bundle() (string, string) { return i.bundle, i.module }

// IsSVG reports whether the source names an SVG document.
func (i Info) IsSVG() bool {
	if i.typ == TypeDataURI {
		return strings.HasPrefix(strings.ToLower(i.src), "data:image/svg")
	}
	return strings.EqualFold(path.Ext(stripQuery(i.src)), ".svg")
}

// IsPixelMap reports whether the source is a decoded pixel map.
func (i Info) IsPixelMap() bool { return i.typ == TypePixelMap }

// SupportsObjectCache reports whether parsed objects for this source may be
// cached by key. Memory and pixel-map sources are identified by payload, so
// caching them would only pin their bytes.
func (i Info) SupportsObjectCache() bool {
	return i.typ != TypeMemory && i.typ != TypePixelMap
}

// IsEmpty reports whether the source identifies nothing.
func (i Info) IsEmpty() bool {
	return i.src == "" && len(i.data) == 0 && i.pmap == nil
}

// Equal reports value equality. Two equal infos are interchangeable.
func (i Info) Equal(o Info) bool {
	return i.typ == o.typ && i.src == o.src && i.fit == o.fit &&
		i.bundle == o.bundle && i.module == o.module &&
		i.pmap == o.pmap && bytes.Equal(i.data, o.data)
}

func (i Info) String() string { return i.key }

func stripQuery(s string) string {
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		return s[:idx]
	}
	return s
}
