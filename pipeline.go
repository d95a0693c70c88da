// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gogpu/ace/internal/astc"
	"github.com/gogpu/ace/internal/cache"
	"github.com/gogpu/ace/internal/canvas"
	"github.com/gogpu/ace/internal/decoder"
	"github.com/gogpu/ace/internal/loader"
	"github.com/gogpu/ace/internal/loading"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/parallel"
	"github.com/gogpu/ace/internal/provider"
	"github.com/gogpu/ace/internal/source"
)

// Pipeline owns the executors, caches and stores of one image pipeline.
//
// Work runs on a background worker pool. Results are delivered on a single
// UI goroutine owned by the pipeline; Post runs arbitrary code there.
type Pipeline struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	pool     *parallel.WorkerPool
	loop     *parallel.Loop
	loopDone chan struct{}

	store astc.Store
	comp  *astc.ZstdCompressor

	objects  *cache.Sharded[*object.Object]
	canvases *cache.CanvasCache
	thumbs   *cache.SoftLimit[string, *canvas.CanvasImage]
	prov     *provider.Provider

	closeOnce sync.Once
	closeErr  error
}

// New builds a pipeline from DefaultConfig adjusted by opts.
func New(opts ...Option) (*Pipeline, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds a pipeline from cfg.
func NewWithConfig(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	var comp *astc.ZstdCompressor
	if store != nil {
		comp, err = astc.NewZstdCompressor()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("ace: compressor: %w", err)
		}
	}

	lopts := loader.Options{Timeout: cfg.NetworkTimeout}
	if cfg.ResourceRoot != "" {
		lopts.Resources = os.DirFS(cfg.ResourceRoot)
	}
	loaders := loader.NewDefaultRegistry(lopts)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		pool:     parallel.NewWorkerPool(cfg.Workers),
		loop:     parallel.NewLoop(),
		loopDone: make(chan struct{}),
		store:    store,
		comp:     comp,
		objects:  cache.NewSharded[*object.Object](cfg.ObjectCacheSize, nil),
		canvases: cache.NewCanvasCache(cfg.CanvasCacheSize),
		thumbs: cache.NewSoftLimit[string, *canvas.CanvasImage](cfg.ThumbnailCacheSize, func(_ string, img *canvas.CanvasImage) {
			img.Release()
		}),
	}

	dopts := decoder.Options{
		Background: p.pool.TrySubmit,
		Reload:     loaders.Create,
	}
	if store != nil {
		dopts.Store = store
		dopts.Compressor = comp
	}

	p.prov = provider.New(provider.Options{
		Loaders:        loaders,
		Decoder:        decoder.New(dopts),
		Tasks:          provider.NewTaskRegistry(),
		Objects:        p.objects,
		Canvases:       p.canvases,
		Thumbnails:     p.thumbs,
		Background:     p.pool.Submit,
		UI:             p.loop.Post,
		PixelMapDecode: cfg.PixelMapDecode,
		Context:        ctx,
	})

	go func() {
		defer close(p.loopDone)
		p.loop.Run(context.Background())
	}()

	Logger().Info("ace: pipeline started",
		"workers", p.pool.Workers(),
		"compressed_cache", cfg.CompressedCache,
		"loaders", loaders.Types())
	return p, nil
}

func openStore(cfg Config) (astc.Store, error) {
	if cfg.CompressedCache == CompressedNone {
		return nil, nil
	}
	dir, err := cfg.cacheDir()
	if err != nil {
		return nil, err
	}
	switch cfg.CompressedCache {
	case CompressedBolt:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ace: cache dir: %w", err)
		}
		s, err := astc.OpenBoltStore(filepath.Join(dir, "astc.db"))
		if err != nil {
			return nil, fmt.Errorf("ace: open compressed cache: %w", err)
		}
		return s, nil
	default:
		s, err := astc.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("ace: open compressed cache: %w", err)
		}
		return s, nil
	}
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Provider returns the request coordinator.
func (p *Pipeline) Provider() *provider.Provider { return p.prov }

// NewLoadingContext returns a loading context for src bound to this
// pipeline. Callbacks arrive on the pipeline's UI goroutine.
func (p *Pipeline) NewLoadingContext(src Source, opts ...loading.Option) *LoadingContext {
	return loading.New(p.prov, src, opts...)
}

// Post runs fn on the UI goroutine. It reports false once the pipeline is
// closed.
func (p *Pipeline) Post(fn func()) bool { return p.loop.Post(fn) }

// Load fetches src and decodes it at size, blocking until the image is ready
// or ctx is done. The caller owns the returned image. Load must not be called
// from the UI goroutine.
func (p *Pipeline) Load(ctx context.Context, src Source, size Size, forceResize bool) (*CanvasImage, error) {
	if src.Type() == source.TypeThumbnail {
		if img, ok := p.prov.QueryThumbnailCache(src); ok {
			return img, nil
		}
	}
	obj, err := p.prov.RequestObjectSync(ctx, src)
	if err != nil {
		return nil, err
	}
	return p.prov.RequestCanvasSync(ctx, obj, size, forceResize)
}

// Pixels returns the decoded pixels of img, expanding compressed blocks.
func (p *Pipeline) Pixels(img *CanvasImage) (*Bitmap, error) {
	if buf := img.Bitmap(); buf != nil {
		return buf, nil
	}
	c, ok := img.Compressed()
	if !ok {
		return nil, fmt.Errorf("%w: image has no pixels", decoder.ErrNoData)
	}
	comp := p.comp
	if comp == nil {
		var err error
		if comp, err = astc.NewZstdCompressor(); err != nil {
			return nil, err
		}
		defer comp.Close()
	}
	return comp.Decompress(c)
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	ObjectHits     uint64
	ObjectMisses   uint64
	Objects        int
	Canvases       int
	Thumbnails     int
	PendingTasks   int
	TasksSubmitted uint64
	TasksCompleted uint64
}

// Stats returns current counters.
func (p *Pipeline) Stats() Stats {
	st := p.objects.Stats()
	sub, done := p.pool.Stats()
	return Stats{
		ObjectHits:     st.Hits,
		ObjectMisses:   st.Misses,
		Objects:        st.Len,
		Canvases:       p.canvases.Len(),
		Thumbnails:     p.thumbs.Len(),
		PendingTasks:   p.prov.PendingTasks(),
		TasksSubmitted: sub,
		TasksCompleted: done,
	}
}

// Close stops the pipeline. Queued work fails with a closed-pipeline error,
// deliveries already posted still run, then the stores are closed.
// Close is safe to call multiple times.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.pool.Close()
		p.loop.Stop()
		<-p.loopDone

		var errs []error
		if p.store != nil {
			if err := p.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("ace: close compressed cache: %w", err))
			}
		}
		if p.comp != nil {
			p.comp.Close()
		}
		p.canvases.Purge()
		p.thumbs.Clear()
		p.closeErr = errors.Join(errs...)
		Logger().Info("ace: pipeline closed")
	})
	return p.closeErr
}
