// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package decoder turns parsed image objects into canvas images at a
// requested size.
//
// A decode first probes the compressed-texture store, then decodes pixels,
// scaling either exactly (force resize) or by the largest power-of-two
// reduction that stays within the target. Fresh decodes are compressed and
// written back to the store in the background.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/ace/internal/astc"
	"github.com/gogpu/ace/internal/canvas"
	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/source"
)

// Decoder errors.
var (
	// ErrNoData is returned when there is no object or no bytes to decode.
	ErrNoData = errors.New("decoder: no image data")

	// ErrDecode is returned when the codec fails on the bytes.
	ErrDecode = errors.New("decoder: decode failed")
)

// ReloadFunc re-reads the encoded bytes of a source whose object no longer
// carries them.
type ReloadFunc func(ctx context.Context, src source.Info) (*object.Data, error)

// Options configures a Decoder. The zero value decodes without a compressed
// store and without reloading.
type Options struct {
	// Store is probed before decoding and receives compressed results.
	Store astc.Store

	// Compressor produces blocks for the store. Nil disables write-back.
	Compressor astc.Compressor

	// Background schedules write-back work. It reports false when the work
	// was not accepted. Nil runs write-back on a new goroutine.
	Background func(func()) bool

	// Reload fetches bytes for objects whose data was cleared after parsing.
	Reload ReloadFunc
}

// Decoder produces canvas images. It holds no per-call state and is safe
// for concurrent use.
type Decoder struct {
	store  astc.Store
	comp   astc.Compressor
	bg     func(func()) bool
	reload ReloadFunc
}

// New returns a decoder.
func New(opts Options) *Decoder {
	d := &Decoder{
		store:  opts.Store,
		comp:   opts.Compressor,
		bg:     opts.Background,
		reload: opts.Reload,
	}
	if d.bg == nil {
		d.bg = func(fn func()) bool { go fn(); return true }
	}
	return d
}

// Request describes one decode.
type Request struct {
	Object *object.Object

	// Data overrides the object's own bytes. Callers that captured the bytes
	// before the object dropped them pass them here.
	Data *object.Data

	// Size is the target size; unset means intrinsic.
	Size source.Size

	// ForceResize scales to exactly round(Size).
	ForceResize bool

	// PixelMap selects the platform pixel-map path.
	PixelMap bool
}

// Decode runs req through the bitmap or pixel-map path.
func (d *Decoder) Decode(ctx context.Context, req Request) (*canvas.CanvasImage, error) {
	if req.Object == nil {
		return nil, ErrNoData
	}
	if req.PixelMap {
		return d.makePixelMap(ctx, req)
	}
	return d.makeBitmap(ctx, req)
}

// MakeBitmapImage decodes obj for display at desired.
//
// An unset or non-positive desired size yields the full-resolution image.
// With forceResize the result is exactly round(desired), at least 1x1.
// Otherwise a source larger than desired in both dimensions is reduced by the
// largest power of two not exceeding min(w/W, h/H), so the result never
// exceeds desired.
// A failed resize falls back to the unscaled image.
func (d *Decoder) MakeBitmapImage(ctx context.Context, obj *object.Object, desired source.Size, forceResize bool) (*canvas.CanvasImage, error) {
	return d.Decode(ctx, Request{Object: obj, Size: desired, ForceResize: forceResize})
}

// MakePixelMapImage decodes obj and resamples it bilinearly to desired,
// honoring the source's fit: fill stretches, contain fits inside, cover
// covers, none keeps the intrinsic size.
func (d *Decoder) MakePixelMapImage(ctx context.Context, obj *object.Object, desired source.Size) (*canvas.CanvasImage, error) {
	return d.Decode(ctx, Request{Object: obj, Size: desired, PixelMap: true})
}

func (d *Decoder) makeBitmap(ctx context.Context, req Request) (*canvas.CanvasImage, error) {
	obj := req.Object
	if img, ok := d.loadCompressed(req); ok {
		return img, nil
	}

	var (
		buf *intImage.ImageBuf
		err error
	)
	if obj.Kind() == object.KindSVG {
		buf, err = d.rasterize(obj, req.Size, req.ForceResize)
	} else {
		buf, err = d.decodePixels(ctx, obj, req.Data)
		if err == nil {
			buf = scale(obj, buf, req.Size, req.ForceResize)
		}
	}
	if err != nil {
		return nil, err
	}

	img := canvas.New(buf)
	d.storeCompressed(req, img)
	return img, nil
}

func (d *Decoder) makePixelMap(ctx context.Context, req Request) (*canvas.CanvasImage, error) {
	obj := req.Object
	w, h := obj.Size()
	tw, th := w, h
	if req.Size.IsValid() {
		tw, th = fitTarget(obj.Source().Fit(), w, h, req.Size)
	}

	var (
		buf *intImage.ImageBuf
		err error
	)
	if obj.Kind() == object.KindSVG {
		buf, err = rasterizeSVG(obj, tw, th)
	} else {
		buf, err = d.decodePixels(ctx, obj, req.Data)
		if err == nil && (buf.Width() != tw || buf.Height() != th) {
			scaled, rerr := intImage.Resize(buf, tw, th, intImage.QualityMedium)
			if rerr != nil {
				slogger().Warn("decoder: pixel map resize failed, using full size",
					"source", obj.Source().Key(), "error", rerr)
			} else {
				buf = scaled
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return canvas.New(buf), nil
}

// decodePixels returns a full-resolution bitmap the caller may own.
func (d *Decoder) decodePixels(ctx context.Context, obj *object.Object, data *object.Data) (*intImage.ImageBuf, error) {
	if obj.Kind() == object.KindPixelMap {
		pm := obj.PixelMap()
		if pm.IsEmpty() {
			return nil, ErrNoData
		}
		return pm.Clone(), nil
	}

	if data.Len() == 0 {
		data = obj.Data()
	}
	if data.Len() == 0 {
		if d.reload == nil {
			return nil, ErrNoData
		}
		var err error
		data, err = d.reload(ctx, obj.Source())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoData, err)
		}
		if data.Len() == 0 {
			return nil, ErrNoData
		}
	}

	buf, _, err := intImage.Decode(data.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, obj.Source().Key(), err)
	}
	return buf, nil
}

func (d *Decoder) rasterize(obj *object.Object, desired source.Size, forceResize bool) (*intImage.ImageBuf, error) {
	w, h := obj.Size()
	switch {
	case !desired.IsValid():
	case forceResize:
		w, h = desired.Round()
	default:
		dw, dh := desired.Round()
		w, h = intImage.FitSize(w, h, max(1, dw), max(1, dh))
	}
	return rasterizeSVG(obj, max(1, w), max(1, h))
}

// scale applies the resize policy to a full decode.
func scale(obj *object.Object, buf *intImage.ImageBuf, desired source.Size, forceResize bool) *intImage.ImageBuf {
	if !desired.IsValid() {
		return buf
	}
	w, h := buf.Width(), buf.Height()

	if forceResize {
		tw, th := desired.Round()
		out, err := intImage.Resize(buf, max(1, tw), max(1, th), intImage.QualityHigh)
		if err != nil {
			slogger().Warn("decoder: resize failed, using full size",
				"source", obj.Source().Key(), "target", desired.String(), "error", err)
			return buf
		}
		return out
	}

	if desired.Width >= float64(w) || desired.Height >= float64(h) {
		return buf
	}
	requested := math.Min(desired.Width/float64(w), desired.Height/float64(h))
	_, n := intImage.NativeScale(requested)
	if n == 0 {
		return buf
	}
	slogger().Debug("decoder: native downscale", "source", obj.Source().Key(),
		"from", fmt.Sprintf("%dx%d", w, h), "halvings", n)
	return intImage.HalveN(buf, n)
}

// fitTarget returns the output size for a pixel-map decode.
func fitTarget(fit source.Fit, w, h int, desired source.Size) (int, int) {
	dw, dh := desired.Round()
	dw, dh = max(1, dw), max(1, dh)
	switch fit {
	case source.FitFill:
		return dw, dh
	case source.FitContain:
		return intImage.FitSize(w, h, dw, dh)
	case source.FitCover:
		s := math.Max(float64(dw)/float64(w), float64(dh)/float64(h))
		return max(1, int(math.Round(float64(w)*s))), max(1, int(math.Round(float64(h)*s)))
	default:
		return w, h
	}
}

func (d *Decoder) loadCompressed(req Request) (*canvas.CanvasImage, bool) {
	if d.store == nil || !req.Size.IsValid() {
		return nil, false
	}
	obj := req.Object
	name := obj.Source().CompressedFileName(req.Size, req.ForceResize)
	c, ok, err := astc.Load(d.store, name)
	if err != nil {
		slogger().Warn("decoder: compressed cache read failed", "file", name, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	slogger().Debug("decoder: compressed cache hit", "source", obj.Source().Key(), "file", name)
	return canvas.NewCompressed(c), true
}

// storeCompressed compresses img and writes it to the store in the
// background. It holds its own clone so the caller may release or mutate img.
func (d *Decoder) storeCompressed(req Request, img *canvas.CanvasImage) {
	if d.store == nil || d.comp == nil || !d.comp.Available() || !req.Size.IsValid() {
		return
	}
	name := req.Object.Source().CompressedFileName(req.Size, req.ForceResize)
	held := img.Clone()
	ok := d.bg(func() {
		defer held.Release()
		c, err := d.comp.Compress(held.Bitmap())
		if err != nil {
			slogger().Warn("decoder: compress failed", "file", name, "error", err)
			return
		}
		if err := astc.Save(d.store, name, c); err != nil {
			slogger().Warn("decoder: compressed cache write failed", "file", name, "error", err)
			return
		}
		slogger().Debug("decoder: compressed cache written", "file", name, "bytes", len(c.Payload))
	})
	if !ok {
		held.Release()
	}
}
