// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package astc

import (
	"bytes"
	"errors"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ace/internal/canvas"
	intImage "github.com/gogpu/ace/internal/image"
)

func TestContainerRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format gputypes.TextureFormat
		want   gputypes.TextureFormat
	}{
		{"astc 4x4", gputypes.TextureFormatASTC4x4Unorm, gputypes.TextureFormatASTC4x4Unorm},
		{"astc 8x8", gputypes.TextureFormatASTC8x8Unorm, gputypes.TextureFormatASTC8x8Unorm},
		{"rgba8", gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8Unorm},
		// sRGB shares the 4x4 footprint, so it reads back as linear.
		{"astc 4x4 srgb", gputypes.TextureFormatASTC4x4UnormSrgb, gputypes.TextureFormatASTC4x4Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := canvas.Compressed{Format: tt.format, Width: 300, Height: 70000, Payload: []byte{9, 8, 7}}
			blob, err := Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if len(blob) != HeaderSize+3 {
				t.Errorf("len(blob) = %d, want %d", len(blob), HeaderSize+3)
			}
			out, err := Decode(blob)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if out.Format != tt.want || out.Width != 300 || out.Height != 70000 {
				t.Errorf("Decode = %v %dx%d, want %v 300x70000", out.Format, out.Width, out.Height, tt.want)
			}
			if !bytes.Equal(out.Payload, in.Payload) {
				t.Errorf("payload = %v, want %v", out.Payload, in.Payload)
			}
		})
	}
}

func TestEncodeRejects(t *testing.T) {
	if _, err := Encode(canvas.Compressed{Format: gputypes.TextureFormatBGRA8Unorm, Width: 1, Height: 1}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown format err = %v, want ErrUnknownFormat", err)
	}
	if _, err := Encode(canvas.Compressed{Format: gputypes.TextureFormatRGBA8Unorm}); err == nil {
		t.Error("zero extent encoded without error")
	}
}

func TestDecodeRejects(t *testing.T) {
	good, _ := Encode(canvas.Compressed{Format: gputypes.TextureFormatRGBA8Unorm, Width: 2, Height: 2})
	badMagic := append([]byte(nil), good...)
	badMagic[0] ^= 0xFF
	badFootprint := append([]byte(nil), good...)
	badFootprint[4] = 6

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"empty", nil, ErrBadHeader},
		{"short", good[:10], ErrBadHeader},
		{"magic", badMagic, ErrBadHeader},
		{"footprint", badFootprint, ErrUnknownFormat},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.blob); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestZstdCompressorRoundTrip(t *testing.T) {
	z, err := NewZstdCompressor()
	if err != nil {
		t.Fatalf("NewZstdCompressor: %v", err)
	}
	defer z.Close()

	buf, _ := intImage.NewImageBuf(17, 9)
	buf.Fill(color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	buf.SetRGBA(16, 8, 1, 2, 3, 4)

	c, err := z.Compress(buf)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if c.Format != gputypes.TextureFormatRGBA8Unorm || c.Width != 17 || c.Height != 9 {
		t.Errorf("Compress = %v %dx%d", c.Format, c.Width, c.Height)
	}
	if len(c.Payload) >= buf.ByteSize() {
		t.Errorf("payload %d bytes, want smaller than %d", len(c.Payload), buf.ByteSize())
	}

	back, err := z.Decompress(c)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !back.Equal(buf) {
		t.Error("Decompress does not reproduce the input pixels")
	}

	if _, err := z.Decompress(canvas.Compressed{Format: gputypes.TextureFormatASTC4x4Unorm}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Decompress(astc) err = %v, want ErrUnknownFormat", err)
	}
}

func TestZstdCompressorEmpty(t *testing.T) {
	z, err := NewZstdCompressor()
	if err != nil {
		t.Fatalf("NewZstdCompressor: %v", err)
	}
	defer z.Close()
	if _, err := z.Compress(nil); err == nil {
		t.Error("Compress(nil) succeeded")
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	bs, err := OpenBoltStore(filepath.Join(t.TempDir(), "db", "astc.db"))
	if err != nil {
		t.Fatalf("OpenBoltStore: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })
	return map[string]Store{"file": fs, "bolt": bs}
}

func TestStores(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get("missing.astc"); ok || err != nil {
				t.Errorf("Get(missing) = ok %v, err %v", ok, err)
			}
			if err := s.Put("a.astc", []byte("one")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put("a.astc", []byte("two")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, ok, err := s.Get("a.astc")
			if err != nil || !ok || string(got) != "two" {
				t.Errorf("Get = %q, %v, %v; want \"two\", true, nil", got, ok, err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			in := canvas.Compressed{Format: gputypes.TextureFormatASTC4x4Unorm, Width: 8, Height: 4, Payload: []byte{1, 2}}
			if err := Save(s, "k.astc", in); err != nil {
				t.Fatalf("Save: %v", err)
			}
			out, ok, err := Load(s, "k.astc")
			if err != nil || !ok {
				t.Fatalf("Load = %v, %v", ok, err)
			}
			if out.Width != 8 || out.Height != 4 || !bytes.Equal(out.Payload, in.Payload) {
				t.Errorf("Load = %+v, want %+v", out, in)
			}
		})
	}
}

func TestStoresConcurrentPut(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := s.Put("same.astc", []byte{byte(i)}); err != nil {
						t.Errorf("Put: %v", err)
					}
				}()
			}
			wg.Wait()
			got, ok, err := s.Get("same.astc")
			if err != nil || !ok || len(got) != 1 {
				t.Errorf("Get after concurrent puts = %v, %v, %v", got, ok, err)
			}
		})
	}
}

func TestFileStoreRejectsPaths(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, name := range []string{"", "..", "a/b.astc", `a\b.astc`} {
		if err := s.Put(name, []byte{1}); err == nil {
			t.Errorf("Put(%q) succeeded", name)
		}
	}
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	if err := s.Put("x", []byte{1}); err != nil {
		t.Errorf("Put: %v", err)
	}
	if _, ok, _ := s.Get("x"); ok {
		t.Error("NopStore returned a hit")
	}
}
