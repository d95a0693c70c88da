// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package loading drives one image consumer through the load pipeline.
//
// A LoadingContext walks Initial → DataLoading → DataReady → MakingImage →
// ImageReady, or into Failed from either loading state. Results for a phase
// the context already left are ignored.
package loading

import (
	"fmt"
	"sync"

	"github.com/gogpu/ace/internal/canvas"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/provider"
	"github.com/gogpu/ace/internal/source"
)

// State is the phase of a LoadingContext.
type State uint8

const (
	Initial State = iota
	DataLoading
	DataReady
	MakingImage
	ImageReady
	Failed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case DataLoading:
		return "DataLoading"
	case DataReady:
		return "DataReady"
	case MakingImage:
		return "MakingImage"
	case ImageReady:
		return "ImageReady"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Callbacks are invoked on the provider's UI executor as the context
// advances. Nil fields are skipped.
type Callbacks struct {
	DataReady func(src source.Info, obj *object.Object)

	// LoadSuccess receives an image the context keeps owning. It stays
	// valid until the next image replaces it or the context is closed.
	LoadSuccess func(src source.Info, img *canvas.CanvasImage)

	LoadFail func(src source.Info, err error)
}

// Option configures a LoadingContext.
type Option func(*LoadingContext)

// WithSync makes every request run inline on the calling goroutine.
func WithSync(sync bool) Option {
	return func(c *LoadingContext) { c.sync = sync }
}

// WithCallbacks sets the callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *LoadingContext) { c.cb = cb }
}

// LoadingContext tracks the load of one source for one consumer.
// Its methods are safe to call from any goroutine; callbacks arrive on the
// provider's UI executor.
type LoadingContext struct {
	p      *provider.Provider
	src    source.Info
	sync   bool
	cb     Callbacks
	handle *provider.Handle

	mu     sync.Mutex
	state  State
	obj    *object.Object
	img    *canvas.CanvasImage
	err    error
	waiter provider.Waiter

	// size and force describe the last canvas request. wantImage is set
	// when it was made before the object was ready.
	size      source.Size
	force     bool
	wantImage bool
}

// New returns a context for src. Nothing is requested until LoadImageData.
func New(p *provider.Provider, src source.Info, opts ...Option) *LoadingContext {
	c := &LoadingContext{p: p, src: src}
	for _, opt := range opts {
		opt(c)
	}
	c.handle = provider.NewHandle(consumer{c})
	return c
}

// Source returns the source being loaded.
func (c *LoadingContext) Source() source.Info { return c.src }

// State returns the current phase.
func (c *LoadingContext) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Object returns the parsed object, or nil before DataReady.
func (c *LoadingContext) Object() *object.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.obj
}

// CanvasImage returns the current image, or nil. The context owns it.
func (c *LoadingContext) CanvasImage() *canvas.CanvasImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

// Err returns the failure that moved the context to Failed.
func (c *LoadingContext) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// LoadImageData starts loading the object. An object-cache hit moves the
// context to DataReady before LoadImageData returns. Calls outside Initial
// are ignored.
func (c *LoadingContext) LoadImageData() {
	c.mu.Lock()
	if c.state != Initial || c.handle.Closed() {
		c.mu.Unlock()
		return
	}
	if obj, ok := c.p.QueryObjectCache(c.src); ok {
		c.mu.Unlock()
		slogger().Debug("loading: object cache hit", "source", c.src.Key())
		c.dataReady(obj)
		return
	}
	c.state = DataLoading
	c.waiter = c.handle.Waiter()
	w := c.waiter
	c.mu.Unlock()

	c.p.CreateImageObject(c.src, w, c.sync)
}

// MakeCanvasImage requests the image at size. Before the object is ready the
// request is remembered and issued on DataReady. A newer request supersedes
// one still in flight.
func (c *LoadingContext) MakeCanvasImage(size source.Size, forceResize bool) {
	c.mu.Lock()
	switch c.state {
	case Initial, DataLoading:
		c.size, c.force, c.wantImage = size, forceResize, true
		c.mu.Unlock()
		return
	case Failed:
		c.mu.Unlock()
		return
	case MakingImage, ImageReady:
		if c.size == size && c.force == forceResize {
			c.mu.Unlock()
			return
		}
	}
	if c.handle.Closed() {
		c.mu.Unlock()
		return
	}

	obj := c.obj
	if c.state == MakingImage {
		// Drop the superseded request: its waiter stops resolving and its
		// task stops if nobody else wants it.
		prev, prevSize, prevForce := c.waiter, c.size, c.force
		c.handle.Invalidate()
		defer c.p.CancelCanvasImage(obj, prevSize, prevForce, prev)
	}
	c.state = MakingImage
	c.size, c.force, c.wantImage = size, forceResize, false
	c.waiter = c.handle.Waiter()
	w := c.waiter
	c.mu.Unlock()

	c.p.MakeCanvasImage(obj, w, size, forceResize, c.sync)
}

// Close detaches the context from all outstanding work and releases its
// image. Pending requests finish for other consumers but are not delivered
// here.
func (c *LoadingContext) Close() {
	c.handle.Close()
	c.mu.Lock()
	img := c.img
	c.img = nil
	c.mu.Unlock()
	img.Release()
}

// Cancel withdraws the outstanding request so its task stops when nobody
// else waits on it, then closes the context.
func (c *LoadingContext) Cancel() {
	c.mu.Lock()
	state, w, obj := c.state, c.waiter, c.obj
	size, force := c.size, c.force
	c.mu.Unlock()

	switch state {
	case DataLoading:
		c.p.CancelObject(c.src, w)
	case MakingImage:
		c.p.CancelCanvasImage(obj, size, force, w)
	}
	c.Close()
}

func (c *LoadingContext) dataReady(obj *object.Object) {
	c.mu.Lock()
	if c.state != Initial && c.state != DataLoading {
		c.mu.Unlock()
		return
	}
	c.state = DataReady
	c.obj = obj
	want, size, force := c.wantImage, c.size, c.force
	c.mu.Unlock()

	slogger().Debug("loading: data ready", "source", c.src.Key())
	if c.cb.DataReady != nil {
		c.cb.DataReady(c.src, obj)
	}
	if want {
		c.MakeCanvasImage(size, force)
	}
}

func (c *LoadingContext) loadSuccess(img *canvas.CanvasImage) {
	c.mu.Lock()
	if c.state != MakingImage {
		c.mu.Unlock()
		img.Release()
		return
	}
	c.state = ImageReady
	old := c.img
	c.img = img
	c.mu.Unlock()

	old.Release()
	slogger().Debug("loading: image ready", "source", c.src.Key(), "width", img.Width(), "height", img.Height())
	if c.cb.LoadSuccess != nil {
		c.cb.LoadSuccess(c.src, img)
	}
}

func (c *LoadingContext) loadFail(err error) {
	c.mu.Lock()
	if c.state != DataLoading && c.state != MakingImage {
		c.mu.Unlock()
		return
	}
	c.state = Failed
	c.err = err
	c.mu.Unlock()

	slogger().Debug("loading: failed", "source", c.src.Key(), "error", err)
	if c.cb.LoadFail != nil {
		c.cb.LoadFail(c.src, err)
	}
}

// consumer keeps the provider callbacks off the exported method set.
type consumer struct{ c *LoadingContext }

func (k consumer) OnDataReady(_ source.Info, obj *object.Object) { k.c.dataReady(obj) }

func (k consumer) OnLoadSuccess(_ source.Info, img *canvas.CanvasImage) { k.c.loadSuccess(img) }

func (k consumer) OnLoadFail(_ source.Info, err error) { k.c.loadFail(err) }
