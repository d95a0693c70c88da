// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package provider coordinates image loading across consumers.
//
// Every request is keyed. The first consumer to ask for a key schedules the
// work; later consumers join its waiter set and are notified when it ends.
// Results are cached before they are delivered, and delivery happens on the
// UI executor for every waiter that still resolves.
package provider

import (
	"context"
	"sync"

	"github.com/gogpu/ace/internal/cache"
	"github.com/gogpu/ace/internal/canvas"
	"github.com/gogpu/ace/internal/decoder"
	"github.com/gogpu/ace/internal/loader"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/source"
	"github.com/gogpu/ace/internal/task"
)

// DefaultThumbnailCapacity is the soft limit of the thumbnail cache.
const DefaultThumbnailCapacity = 64

// Consumer receives the results of the requests it waits on. All methods
// are called on the UI executor.
type Consumer interface {
	// OnDataReady is called once the object for src is parsed.
	OnDataReady(src source.Info, obj *object.Object)

	// OnLoadSuccess hands over a canvas image. The consumer owns img and
	// releases it when done.
	OnLoadSuccess(src source.Info, img *canvas.CanvasImage)

	// OnLoadFail reports a failed request. err is a *LoadError.
	OnLoadFail(src source.Info, err error)
}

// Funcs adapts plain functions to Consumer. Nil fields ignore the event;
// an ignored canvas image is released.
type Funcs struct {
	DataReady   func(src source.Info, obj *object.Object)
	LoadSuccess func(src source.Info, img *canvas.CanvasImage)
	LoadFail    func(src source.Info, err error)
}

func (f Funcs) OnDataReady(src source.Info, obj *object.Object) {
	if f.DataReady != nil {
		f.DataReady(src, obj)
	}
}

func (f Funcs) OnLoadSuccess(src source.Info, img *canvas.CanvasImage) {
	if f.LoadSuccess == nil {
		img.Release()
		return
	}
	f.LoadSuccess(src, img)
}

func (f Funcs) OnLoadFail(src source.Info, err error) {
	if f.LoadFail != nil {
		f.LoadFail(src, err)
	}
}

// Handle and Waiter specialize the task types to Consumer.
type (
	Handle = task.Handle[Consumer]
	Waiter = task.Waiter[Consumer]
)

// NewHandle returns a live handle for c.
func NewHandle(c Consumer) *Handle { return task.NewHandle[Consumer](c) }

// NewTaskRegistry returns an empty registry for provider tasks.
func NewTaskRegistry() *task.Registry[Consumer] { return task.NewRegistry[Consumer]() }

// Options configures a Provider. Nil fields get private defaults.
type Options struct {
	Loaders    *loader.Registry
	Decoder    *decoder.Decoder
	Tasks      *task.Registry[Consumer]
	Objects    *cache.Sharded[*object.Object]
	Canvases   *cache.CanvasCache
	Thumbnails *cache.SoftLimit[string, *canvas.CanvasImage]

	// Background runs build and decode work. It reports false when the
	// work was rejected. Nil starts a goroutine per task.
	Background func(func()) bool

	// UI runs deliveries. Nil delivers on the goroutine that finished the
	// work.
	UI func(func()) bool

	// PixelMapDecode routes canvas requests through the pixel-map path.
	PixelMapDecode bool

	// Context bounds all work. Canceling it fails pending requests.
	Context context.Context
}

// Provider deduplicates, caches and delivers image work.
type Provider struct {
	ctx      context.Context
	loaders  *loader.Registry
	dec      *decoder.Decoder
	tasks    *task.Registry[Consumer]
	objects  *cache.Sharded[*object.Object]
	canvases *cache.CanvasCache
	pixelMap bool
	async    scheduler

	// thumbMu serializes thumbnail reads with evictions so a clone is never
	// taken from released storage.
	thumbMu sync.Mutex
	thumbs  *cache.SoftLimit[string, *canvas.CanvasImage]
}

// New returns a provider.
func New(opts Options) *Provider {
	p := &Provider{
		ctx:      opts.Context,
		loaders:  opts.Loaders,
		dec:      opts.Decoder,
		tasks:    opts.Tasks,
		objects:  opts.Objects,
		canvases: opts.Canvases,
		thumbs:   opts.Thumbnails,
		pixelMap: opts.PixelMapDecode,
		async:    scheduler{bg: opts.Background, ui: opts.UI},
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	if p.loaders == nil {
		p.loaders = loader.NewDefaultRegistry(loader.Options{})
	}
	if p.dec == nil {
		p.dec = decoder.New(decoder.Options{Reload: p.loaders.Create})
	}
	if p.tasks == nil {
		p.tasks = NewTaskRegistry()
	}
	if p.objects == nil {
		p.objects = cache.NewSharded[*object.Object](cache.DefaultCapacity, nil)
	}
	if p.canvases == nil {
		p.canvases = cache.NewCanvasCache(cache.DefaultCanvasCapacity)
	}
	if p.thumbs == nil {
		p.thumbs = cache.NewSoftLimit[string, *canvas.CanvasImage](DefaultThumbnailCapacity, func(_ string, img *canvas.CanvasImage) {
			img.Release()
		})
	}
	if p.async.bg == nil {
		p.async.bg = func(fn func()) bool { go fn(); return true }
	}
	if p.async.ui == nil {
		p.async.ui = inline
	}
	return p
}

// scheduler decides where work and deliveries run.
type scheduler struct {
	bg, ui func(func()) bool
}

func inline(fn func()) bool {
	fn()
	return true
}

var syncScheduler = scheduler{bg: inline, ui: inline}

func (p *Provider) scheduler(sync bool) scheduler {
	if sync {
		return syncScheduler
	}
	return p.async
}

// CreateImageObject requests the parsed object for src on behalf of w.
//
// With sync the load and parse run on the caller, and so does delivery.
// A sync caller that joins a task already in flight returns at once and is
// notified when that task ends.
func (p *Provider) CreateImageObject(src source.Info, w Waiter, sync bool) {
	key := src.Key()
	p.start(src, key, w, p.scheduler(sync), func(ctx context.Context) delivery {
		return p.buildObject(ctx, src)
	})
}

// MakeCanvasImage requests obj decoded at size on behalf of w. A canvas
// cache hit is delivered without scheduling any work.
func (p *Provider) MakeCanvasImage(obj *object.Object, w Waiter, size source.Size, forceResize, sync bool) {
	s := p.scheduler(sync)
	if obj == nil {
		p.post(s, "", []Waiter{w}, failure(source.Info{}, &LoadError{Step: StepData, Err: decoder.ErrNoData}))
		return
	}
	src := obj.Source()
	key := src.CanvasKey(size, forceResize)
	if img, ok := p.canvases.Get(key); ok {
		slogger().Debug("provider: canvas cache hit", "key", key)
		p.post(s, key, []Waiter{w}, delivery{
			each: func(c Consumer) { c.OnLoadSuccess(src, img.Clone()) },
			done: img.Release,
		})
		return
	}
	// The object drops its bytes after delivery; the winner keeps a view.
	data := obj.Data()
	p.start(src, key, w, s, func(ctx context.Context) delivery {
		return p.decodeCanvas(ctx, obj, data, key, size, forceResize)
	})
}

// RequestObjectAsync is CreateImageObject off the caller's goroutine.
func (p *Provider) RequestObjectAsync(src source.Info, w Waiter) {
	p.CreateImageObject(src, w, false)
}

// RequestCanvasAsync is MakeCanvasImage off the caller's goroutine.
func (p *Provider) RequestCanvasAsync(obj *object.Object, w Waiter, size source.Size, forceResize bool) {
	p.MakeCanvasImage(obj, w, size, forceResize, false)
}

type syncResult struct {
	obj *object.Object
	img *canvas.CanvasImage
	err error
}

// RequestObjectSync blocks until the object for src is ready or ctx is done.
// It must not be called on the UI executor: the result is delivered there.
func (p *Provider) RequestObjectSync(ctx context.Context, src source.Info) (*object.Object, error) {
	if obj, ok := p.QueryObjectCache(src); ok {
		return obj, nil
	}
	done := make(chan syncResult, 1)
	h := NewHandle(Funcs{
		DataReady: func(_ source.Info, obj *object.Object) { done <- syncResult{obj: obj} },
		LoadFail:  func(_ source.Info, err error) { done <- syncResult{err: err} },
	})
	defer h.Close()

	w := h.Waiter()
	p.RequestObjectAsync(src, w)
	select {
	case r := <-done:
		return r.obj, r.err
	case <-ctx.Done():
		p.CancelObject(src, w)
		return nil, ctx.Err()
	}
}

// RequestCanvasSync blocks until obj is decoded at size or ctx is done.
// The caller owns the returned image. Like RequestObjectSync it must not be
// called on the UI executor.
func (p *Provider) RequestCanvasSync(ctx context.Context, obj *object.Object, size source.Size, forceResize bool) (*canvas.CanvasImage, error) {
	res := newCanvasHandoff()
	h := NewHandle(Funcs{
		LoadSuccess: func(_ source.Info, img *canvas.CanvasImage) { res.deliver(syncResult{img: img}) },
		LoadFail:    func(_ source.Info, err error) { res.deliver(syncResult{err: err}) },
	})
	defer h.Close()

	w := h.Waiter()
	p.RequestCanvasAsync(obj, w, size, forceResize)
	select {
	case r := <-res.done:
		return r.img, r.err
	case <-ctx.Done():
		res.abandon()
		if obj != nil {
			p.CancelCanvasImage(obj, size, forceResize, w)
		}
		return nil, ctx.Err()
	}
}

// canvasHandoff passes one result to a blocked caller. After abandon, any
// image that arrived or arrives later is released.
type canvasHandoff struct {
	mu        sync.Mutex
	abandoned bool
	done      chan syncResult
}

func newCanvasHandoff() *canvasHandoff {
	return &canvasHandoff{done: make(chan syncResult, 1)}
}

func (c *canvasHandoff) deliver(r syncResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		r.img.Release()
		return
	}
	select {
	case c.done <- r:
	default:
		r.img.Release()
	}
}

func (c *canvasHandoff) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandoned = true
	select {
	case r := <-c.done:
		r.img.Release()
	default:
	}
}

// QueryObjectCache returns the cached object for src without scheduling
// anything.
func (p *Provider) QueryObjectCache(src source.Info) (*object.Object, bool) {
	if !src.SupportsObjectCache() {
		return nil, false
	}
	return p.objects.Get(src.Key())
}

// QueryThumbnailCache returns a clone of the cached thumbnail for src. The
// caller owns the clone.
func (p *Provider) QueryThumbnailCache(src source.Info) (*canvas.CanvasImage, bool) {
	p.thumbMu.Lock()
	defer p.thumbMu.Unlock()
	img, ok := p.thumbs.Get(src.Key())
	if !ok {
		return nil, false
	}
	return img.Clone(), true
}

// CancelObject withdraws w from the object task for src. It reports whether
// the task itself was stopped.
func (p *Provider) CancelObject(src source.Info, w Waiter) bool {
	return p.cancel(src.Key(), w)
}

// CancelCanvasImage withdraws w from the decode of obj at size.
func (p *Provider) CancelCanvasImage(obj *object.Object, size source.Size, forceResize bool, w Waiter) bool {
	return p.cancel(obj.Source().CanvasKey(size, forceResize), w)
}

func (p *Provider) cancel(key string, w Waiter) bool {
	stopped := p.tasks.Cancel(key, w)
	if stopped {
		slogger().Debug("provider: task canceled", "key", key)
	}
	return stopped
}

// PendingTasks returns the number of keys with work in flight.
func (p *Provider) PendingTasks() int { return p.tasks.Len() }

// start registers w under key. The first registrant schedules work on s and
// delivers its outcome to every waiter harvested when the work ends.
func (p *Provider) start(src source.Info, key string, w Waiter, s scheduler, work func(ctx context.Context) delivery) {
	if !p.tasks.Register(key, w) {
		slogger().Debug("provider: joined in-flight task", "key", key)
		return
	}
	job := task.NewJob(p.ctx, func(ctx context.Context) {
		d := work(ctx)
		p.post(s, key, p.tasks.End(key), d)
	})
	p.tasks.SetJob(key, job)
	if s.bg(func() { job.Run() }) {
		return
	}
	if job.Cancel() {
		slogger().Warn("provider: background executor rejected task", "key", key)
		p.post(s, key, p.tasks.End(key), failure(src, &LoadError{Step: StepClosed, Key: key, Err: ErrClosed}))
	}
}

func (p *Provider) buildObject(ctx context.Context, src source.Info) delivery {
	key := src.Key()
	if err := ctx.Err(); err != nil {
		return failure(src, classify(key, err, StepClosed))
	}
	data, err := p.loaders.Create(ctx, src)
	var obj *object.Object
	if err == nil {
		obj, err = object.Build(src, data)
	}
	if err != nil {
		le := classify(key, err, StepParse)
		slogger().Debug("provider: object failed", "key", key, "step", string(le.Step), "error", err)
		return failure(src, le)
	}
	if src.SupportsObjectCache() {
		p.objects.Set(key, obj)
	}
	w, h := obj.Size()
	slogger().Debug("provider: object ready", "key", key, "kind", obj.Kind().String(), "width", w, "height", h)
	return delivery{
		each: func(c Consumer) { c.OnDataReady(src, obj) },
		done: obj.ClearData,
	}
}

func (p *Provider) decodeCanvas(ctx context.Context, obj *object.Object, data *object.Data, key string, size source.Size, forceResize bool) delivery {
	src := obj.Source()
	if err := ctx.Err(); err != nil {
		return failure(src, classify(key, err, StepClosed))
	}
	img, err := p.dec.Decode(ctx, decoder.Request{
		Object:      obj,
		Data:        data,
		Size:        size,
		ForceResize: forceResize,
		PixelMap:    p.pixelMap,
	})
	if err != nil {
		le := classify(key, err, StepDecode)
		slogger().Debug("provider: decode failed", "key", key, "step", string(le.Step), "error", err)
		return failure(src, le)
	}
	p.canvases.Put(key, img)
	if src.Type() == source.TypeThumbnail {
		p.thumbMu.Lock()
		p.thumbs.Set(src.Key(), img.Clone())
		p.thumbMu.Unlock()
	}
	slogger().Debug("provider: canvas ready", "key", key, "width", img.Width(), "height", img.Height())
	return delivery{
		each: func(c Consumer) { c.OnLoadSuccess(src, img.Clone()) },
		done: img.Release,
	}
}

// delivery is the outcome of a task, replayed once per resolvable waiter.
type delivery struct {
	each func(c Consumer)
	done func()
}

func failure(src source.Info, err error) delivery {
	return delivery{each: func(c Consumer) { c.OnLoadFail(src, err) }}
}

func (d delivery) fanOut(waiters []Waiter) {
	for _, w := range waiters {
		c, ok := w.Resolve()
		if !ok {
			continue
		}
		d.each(c)
	}
	if d.done != nil {
		d.done()
	}
}

// post runs the fan-out on the UI executor. Once the executor is gone the
// fan-out runs on the caller, so no waiter is left without an answer.
func (p *Provider) post(s scheduler, key string, waiters []Waiter, d delivery) {
	if s.ui(func() { d.fanOut(waiters) }) {
		return
	}
	slogger().Debug("provider: ui executor closed, delivering inline", "key", key, "waiters", len(waiters))
	d.fanOut(waiters)
}
