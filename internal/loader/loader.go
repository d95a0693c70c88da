// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package loader resolves image sources to their encoded bytes.
//
// Loaders are pluggable per source type through a Registry. Loading never
// touches a cache.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/source"
)

// Loader errors.
var (
	// ErrLoaderUnavailable is returned when no loader handles a source type.
	ErrLoaderUnavailable = errors.New("loader: no loader for source")

	// ErrDataUnavailable is returned when a loader resolved but produced no
	// bytes (missing file, network failure, empty payload).
	ErrDataUnavailable = errors.New("loader: data unavailable")
)

// Loader reads the encoded bytes for one kind of source.
type Loader interface {
	Load(ctx context.Context, src source.Info) (*object.Data, error)
}

// Func adapts a function to the Loader interface.
type Func func(ctx context.Context, src source.Info) (*object.Data, error)

// Load calls f.
func (f Func) Load(ctx context.Context, src source.Info) (*object.Data, error) { return f(ctx, src) }

// Registry dispatches sources to loaders by source type.
// It is safe for concurrent use.
type Registry struct {
	loaders *gpucontext.Registry[Loader]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: gpucontext.NewRegistry[Loader]()}
}

// Register installs a loader for t, replacing any previous one.
func (r *Registry) Register(t source.Type, l Loader) {
	r.loaders.Register(t.String(), func() Loader { return l })
}

// Unregister removes the loader for t.
func (r *Registry) Unregister(t source.Type) {
	r.loaders.Unregister(t.String())
}

// Lookup returns the loader for t.
func (r *Registry) Lookup(t source.Type) (Loader, error) {
	l := r.loaders.Get(t.String())
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrLoaderUnavailable, t)
	}
	return l, nil
}

// Types lists the registered source type names.
func (r *Registry) Types() []string { return r.loaders.Available() }

// Create reads the bytes for src through its loader. Errors wrap
// ErrLoaderUnavailable or ErrDataUnavailable.
func (r *Registry) Create(ctx context.Context, src source.Info) (*object.Data, error) {
	if src.IsEmpty() {
		return nil, fmt.Errorf("%w: empty source", ErrLoaderUnavailable)
	}
	l, err := r.Lookup(src.Type())
	if err != nil {
		return nil, err
	}
	data, err := l.Load(ctx, src)
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) || errors.Is(err, ErrLoaderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, src, err)
	}
	if data == nil && !src.IsPixelMap() {
		return nil, fmt.Errorf("%w: %s: loader returned nothing", ErrDataUnavailable, src)
	}
	return data, nil
}

// Options configures the built-in loaders.
type Options struct {
	// Client is used by the network loader. Nil means a client with Timeout.
	Client *http.Client

	// Timeout bounds network requests when Client is nil.
	Timeout time.Duration

	// Resources backs resource:// sources. Nil disables the resource loader.
	Resources fs.FS
}

// NewDefaultRegistry returns a registry with every built-in loader.
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	r.Register(source.TypeFile, FileLoader{})
	r.Register(source.TypeNetwork, NetworkLoader{Client: client})
	r.Register(source.TypeMemory, MemoryLoader{})
	r.Register(source.TypeDataURI, DataURILoader{})
	r.Register(source.TypePixelMap, PixelMapLoader{})
	r.Register(source.TypeThumbnail, ThumbnailLoader{})
	if opts.Resources != nil {
		r.Register(source.TypeResource, ResourceLoader{FS: opts.Resources})
	}
	return r
}
