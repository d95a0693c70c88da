// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package decoder

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ace/internal/astc"
	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/source"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf, err := intImage.NewImageBuf(w, h)
	if err != nil {
		t.Fatal(err)
	}
	buf.Fill(color.NRGBA{R: 40, G: 80, B: 120, A: 255})
	data, err := buf.EncodeToBytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func buildObject(t *testing.T, src source.Info, data []byte) *object.Object {
	t.Helper()
	obj, err := object.Build(src, object.NewData(data))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return obj
}

func pngObject(t *testing.T, w, h int) *object.Object {
	t.Helper()
	data := encodePNG(t, w, h)
	return buildObject(t, source.FromBytes(data), data)
}

func TestMakeBitmapImageNativeScale(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		desired      source.Size
		wantW, wantH int
	}{
		{"unset", 100, 100, source.Size{}, 100, 100},
		{"negative", 100, 100, source.Size{Width: -1, Height: 50}, 100, 100},
		{"half", 100, 100, source.Size{Width: 50, Height: 50}, 50, 50},
		{"between powers", 100, 80, source.Size{Width: 30, Height: 30}, 25, 20},
		{"fractional", 100, 100, source.Size{Width: 49.6, Height: 49.6}, 25, 25},
		{"larger than source", 100, 100, source.Size{Width: 200, Height: 200}, 100, 100},
		{"smaller in one dimension", 100, 100, source.Size{Width: 50, Height: 150}, 100, 100},
		{"tiny", 64, 64, source.Size{Width: 3, Height: 3}, 2, 2},
	}
	d := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := d.MakeBitmapImage(context.Background(), pngObject(t, tt.w, tt.h), tt.desired, false)
			if err != nil {
				t.Fatalf("MakeBitmapImage: %v", err)
			}
			if img.Width() != tt.wantW || img.Height() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", img.Width(), img.Height(), tt.wantW, tt.wantH)
			}
			if tt.desired.IsValid() && tt.desired.Width < float64(tt.w) && tt.desired.Height < float64(tt.h) {
				if float64(img.Width()) > tt.desired.Width || float64(img.Height()) > tt.desired.Height {
					t.Errorf("decoded %dx%d exceeds desired %v", img.Width(), img.Height(), tt.desired)
				}
			}
		})
	}
}

func TestMakeBitmapImageNeverExceedsDesired(t *testing.T) {
	d := New(Options{})
	obj := pngObject(t, 97, 61)
	for w := 1.0; w < 97; w += 7.3 {
		for h := 1.0; h < 61; h += 5.9 {
			img, err := d.MakeBitmapImage(context.Background(), obj, source.Size{Width: w, Height: h}, false)
			if err != nil {
				t.Fatalf("MakeBitmapImage(%vx%v): %v", w, h, err)
			}
			if float64(img.Width()) > w || float64(img.Height()) > h {
				t.Errorf("desired %.1fx%.1f: decoded %dx%d", w, h, img.Width(), img.Height())
			}
		}
	}
}

func TestMakeBitmapImageForceResize(t *testing.T) {
	tests := []struct {
		desired      source.Size
		wantW, wantH int
	}{
		{source.Size{Width: 50, Height: 50}, 50, 50},
		{source.Size{Width: 33.4, Height: 66.6}, 33, 67},
		{source.Size{Width: 150, Height: 20}, 150, 20},
		// Sub-pixel targets clamp to one pixel.
		{source.Size{Width: 0.3, Height: 0.3}, 1, 1},
		{source.Size{Width: 0.4, Height: 100}, 1, 100},
	}
	d := New(Options{})
	obj := pngObject(t, 100, 100)
	for _, tt := range tests {
		img, err := d.MakeBitmapImage(context.Background(), obj, tt.desired, true)
		if err != nil {
			t.Fatalf("MakeBitmapImage(%v): %v", tt.desired, err)
		}
		if img.Width() != tt.wantW || img.Height() != tt.wantH {
			t.Errorf("force %v: size = %dx%d, want %dx%d", tt.desired, img.Width(), img.Height(), tt.wantW, tt.wantH)
		}
	}
}

func TestMakeBitmapImagePixels(t *testing.T) {
	d := New(Options{})
	img, err := d.MakeBitmapImage(context.Background(), pngObject(t, 8, 8), source.Size{Width: 4, Height: 4}, false)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.Bitmap().GetRGBA(1, 1)
	if r != 40 || g != 80 || b != 120 || a != 255 {
		t.Errorf("pixel = %d,%d,%d,%d; want 40,80,120,255", r, g, b, a)
	}
}

func TestMakeBitmapImageNoData(t *testing.T) {
	d := New(Options{})
	if _, err := d.MakeBitmapImage(context.Background(), nil, source.Size{}, false); !errors.Is(err, ErrNoData) {
		t.Errorf("nil object err = %v, want ErrNoData", err)
	}

	obj := pngObject(t, 10, 10)
	obj.ClearData()
	if _, err := d.MakeBitmapImage(context.Background(), obj, source.Size{}, false); !errors.Is(err, ErrNoData) {
		t.Errorf("cleared data err = %v, want ErrNoData", err)
	}

	boom := errors.New("gone")
	d = New(Options{Reload: func(context.Context, source.Info) (*object.Data, error) { return nil, boom }})
	if _, err := d.MakeBitmapImage(context.Background(), obj, source.Size{}, false); !errors.Is(err, ErrNoData) || !errors.Is(err, boom) {
		t.Errorf("failed reload err = %v, want ErrNoData wrapping the cause", err)
	}
}

func TestMakeBitmapImageReload(t *testing.T) {
	data := encodePNG(t, 12, 6)
	obj := buildObject(t, source.FromBytes(data), data)
	obj.ClearData()

	calls := 0
	d := New(Options{Reload: func(_ context.Context, src source.Info) (*object.Data, error) {
		calls++
		return object.NewSharedData(src.Data()), nil
	}})
	img, err := d.MakeBitmapImage(context.Background(), obj, source.Size{}, false)
	if err != nil {
		t.Fatalf("MakeBitmapImage: %v", err)
	}
	if calls != 1 || img.Width() != 12 || img.Height() != 6 {
		t.Errorf("reload calls = %d, size = %dx%d", calls, img.Width(), img.Height())
	}
}

func TestMakeBitmapImageDecodeFailure(t *testing.T) {
	full := encodePNG(t, 16, 16)
	// Signature plus IHDR parses; the pixel data is gone.
	obj := buildObject(t, source.FromBytes(full[:40]), full[:40])
	_, err := New(Options{}).MakeBitmapImage(context.Background(), obj, source.Size{}, false)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

const redSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="48" height="24" viewBox="0 0 48 24">
<rect x="0" y="0" width="48" height="24" fill="#ff0000"/></svg>`

func TestMakeBitmapImageSVG(t *testing.T) {
	obj := buildObject(t, source.New("/icons/red.svg"), []byte(redSVG))
	d := New(Options{})

	tests := []struct {
		desired      source.Size
		force        bool
		wantW, wantH int
	}{
		{source.Size{}, false, 48, 24},
		{source.Size{Width: 24, Height: 24}, false, 24, 12},
		{source.Size{Width: 96, Height: 96}, false, 96, 48},
		{source.Size{Width: 24, Height: 24}, true, 24, 24},
	}
	for _, tt := range tests {
		img, err := d.MakeBitmapImage(context.Background(), obj, tt.desired, tt.force)
		if err != nil {
			t.Fatalf("MakeBitmapImage(%v): %v", tt.desired, err)
		}
		if img.Width() != tt.wantW || img.Height() != tt.wantH {
			t.Errorf("%v force=%v: size = %dx%d, want %dx%d", tt.desired, tt.force, img.Width(), img.Height(), tt.wantW, tt.wantH)
		}
		r, _, _, a := img.Bitmap().GetRGBA(img.Width()/2, img.Height()/2)
		if r < 200 || a < 200 {
			t.Errorf("%v: center pixel r=%d a=%d, want opaque red", tt.desired, r, a)
		}
	}
}

func TestMakeBitmapImagePixelMap(t *testing.T) {
	pm, _ := intImage.NewImageBuf(8, 8)
	pm.Fill(color.NRGBA{G: 255, A: 255})
	obj := buildObject(t, source.FromPixelMap(pm), nil)

	img, err := New(Options{}).MakeBitmapImage(context.Background(), obj, source.Size{Width: 2, Height: 2}, false)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 2 || img.Height() != 2 {
		t.Errorf("size = %dx%d, want 2x2", img.Width(), img.Height())
	}
	if img.Bitmap() == pm {
		t.Error("decode aliases the source pixel map")
	}
}

func TestCompressedFastPath(t *testing.T) {
	store, err := astc.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	z, err := astc.NewZstdCompressor()
	if err != nil {
		t.Fatal(err)
	}
	defer z.Close()

	d := New(Options{
		Store:      store,
		Compressor: z,
		Background: func(fn func()) bool { fn(); return true },
	})
	obj := pngObject(t, 64, 64)
	desired := source.Size{Width: 32, Height: 32}

	first, err := d.MakeBitmapImage(context.Background(), obj, desired, false)
	if err != nil {
		t.Fatal(err)
	}
	if first.IsCompressed() {
		t.Fatal("cold decode returned a compressed image")
	}
	if _, ok, _ := store.Get(obj.Source().CompressedFileName(desired, false)); !ok {
		t.Fatal("write-back did not reach the store")
	}

	// The second decode must not need the bytes at all.
	obj.ClearData()
	second, err := d.MakeBitmapImage(context.Background(), obj, desired, false)
	if err != nil {
		t.Fatal(err)
	}
	if !second.IsCompressed() {
		t.Fatal("warm decode did not use the compressed cache")
	}
	c, _ := second.Compressed()
	if c.Format != gputypes.TextureFormatRGBA8Unorm || second.Width() != 32 || second.Height() != 32 {
		t.Errorf("compressed = %v %dx%d, want RGBA8 32x32", c.Format, second.Width(), second.Height())
	}
	back, err := z.Decompress(c)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(first.Bitmap()) {
		t.Error("compressed block does not match the decoded pixels")
	}

	// A different size misses.
	other, err := d.MakeBitmapImage(context.Background(), pngObject(t, 64, 64), source.Size{Width: 16, Height: 16}, false)
	if err != nil || other.IsCompressed() {
		t.Errorf("other size: compressed=%v err=%v", other != nil && other.IsCompressed(), err)
	}
}

func TestMakePixelMapImageFit(t *testing.T) {
	data := encodePNG(t, 100, 50)
	desired := source.Size{Width: 50, Height: 50}
	tests := []struct {
		fit          source.Fit
		wantW, wantH int
	}{
		{source.FitFill, 50, 50},
		{source.FitContain, 50, 25},
		{source.FitCover, 100, 50},
		{source.FitNone, 100, 50},
	}
	d := New(Options{})
	for _, tt := range tests {
		obj := buildObject(t, source.FromBytes(data, source.WithFit(tt.fit)), data)
		img, err := d.MakePixelMapImage(context.Background(), obj, desired)
		if err != nil {
			t.Fatalf("fit %d: %v", tt.fit, err)
		}
		if img.Width() != tt.wantW || img.Height() != tt.wantH {
			t.Errorf("fit %d: size = %dx%d, want %dx%d", tt.fit, img.Width(), img.Height(), tt.wantW, tt.wantH)
		}
	}
	if _, err := d.MakePixelMapImage(context.Background(), nil, desired); !errors.Is(err, ErrNoData) {
		t.Errorf("nil object err = %v, want ErrNoData", err)
	}
}

func TestDecodeWithCapturedData(t *testing.T) {
	data := encodePNG(t, 10, 6)
	obj := buildObject(t, source.FromBytes(data), data)
	captured := obj.Data()
	obj.ClearData()

	img, err := New(Options{}).Decode(context.Background(), Request{Object: obj, Data: captured})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width() != 10 || img.Height() != 6 {
		t.Errorf("size = %dx%d, want 10x6", img.Width(), img.Height())
	}
}
