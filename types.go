// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ace

import (
	"github.com/gogpu/ace/internal/canvas"
	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/loading"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/provider"
	"github.com/gogpu/ace/internal/source"
)

// Public names for the pipeline's value types.
type (
	Source         = source.Info
	SourceOption   = source.Option
	Size           = source.Size
	Fit            = source.Fit
	Object         = object.Object
	CanvasImage    = canvas.CanvasImage
	Bitmap         = intImage.ImageBuf
	LoadingContext = loading.LoadingContext
	LoadError      = provider.LoadError
)

// Image fit modes.
const (
	FitCover   = source.FitCover
	FitContain = source.FitContain
	FitFill    = source.FitFill
	FitNone    = source.FitNone
)

// NewSource describes a file path or a file://, http(s)://, resource://,
// data: or thumbnail:// URI.
func NewSource(uri string, opts ...SourceOption) Source { return source.New(uri, opts...) }

// SourceFromBytes describes an in-memory encoded image.
func SourceFromBytes(data []byte, opts ...SourceOption) Source {
	return source.FromBytes(data, opts...)
}

// SourceFromBitmap describes an already decoded pixel map.
func SourceFromBitmap(pm *Bitmap, opts ...SourceOption) Source {
	return source.FromPixelMap(pm, opts...)
}

// WithFit sets how a source is fitted into its target size.
func WithFit(f Fit) SourceOption { return source.WithFit(f) }

// WithBundle scopes a resource source to an application bundle and module.
func WithBundle(bundle, module string) SourceOption { return source.WithBundle(bundle, module) }

// NewBitmap allocates a transparent width x height bitmap.
func NewBitmap(width, height int) (*Bitmap, error) { return intImage.NewImageBuf(width, height) }
