// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/source"
)

var payload = []byte("\x89PNG fake image bytes")

func newTestRegistry(t *testing.T) (*Registry, string, string) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, payload, 0o600); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	res := fstest.MapFS{
		"media/icon.png":            {Data: payload},
		"com.app/entry/media/b.png": {Data: payload},
	}
	r := NewDefaultRegistry(Options{Timeout: 5 * time.Second, Resources: res})
	return r, file, srv.URL
}

func TestCreate(t *testing.T) {
	r, file, base := newTestRegistry(t)
	pm, _ := intImage.NewImageBuf(2, 2)

	tests := []struct {
		name   string
		src    source.Info
		own    object.Ownership
		noData bool
	}{
		{"bare path", source.New(file), object.Own, false},
		{"file uri", source.New("file://" + file), object.Own, false},
		{"network", source.New(base + "/a.png"), object.Own, false},
		{"resource", source.New("resource://media/icon.png"), object.Shared, false},
		{"resource bundle", source.New("resource://media/b.png", source.WithBundle("com.app", "entry")), object.Shared, false},
		{"memory", source.FromBytes(payload), object.Shared, false},
		{"data uri", source.New("data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)), object.Own, false},
		{"thumbnail", source.New("thumbnail://" + file), object.Own, false},
		{"pixel map", source.FromPixelMap(pm), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Create(context.Background(), tt.src)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if tt.noData {
				if d != nil {
					t.Errorf("Create = %v, want nil data", d)
				}
				return
			}
			if string(d.Bytes()) != string(payload) {
				t.Errorf("bytes = %q, want %q", d.Bytes(), payload)
			}
			if d.Ownership() != tt.own {
				t.Errorf("ownership = %v, want %v", d.Ownership(), tt.own)
			}
		})
	}
}

func TestCreateErrors(t *testing.T) {
	r, file, base := newTestRegistry(t)

	tests := []struct {
		name string
		src  source.Info
		want error
	}{
		{"missing file", source.New(filepath.Join(filepath.Dir(file), "none.png")), ErrDataUnavailable},
		{"http 404", source.New(base + "/none.png"), ErrDataUnavailable},
		{"missing resource", source.New("resource://media/none.png"), ErrDataUnavailable},
		{"bad base64", source.New("data:image/png;base64,@@@"), ErrDataUnavailable},
		{"no payload", source.New("data:image/png"), ErrDataUnavailable},
		{"empty memory", source.FromBytes([]byte{}), ErrLoaderUnavailable},
		{"empty pixel map", source.FromPixelMap(nil), ErrLoaderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Create(context.Background(), tt.src)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateUnregistered(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(context.Background(), source.New("/tmp/x.png"))
	if !errors.Is(err, ErrLoaderUnavailable) {
		t.Errorf("err = %v, want ErrLoaderUnavailable", err)
	}

	// Resource loading is disabled without a bundle file system.
	r = NewDefaultRegistry(Options{})
	_, err = r.Create(context.Background(), source.New("resource://media/icon.png"))
	if !errors.Is(err, ErrLoaderUnavailable) {
		t.Errorf("resource err = %v, want ErrLoaderUnavailable", err)
	}
}

func TestCreateWrapsPlainErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register(source.TypeFile, Func(func(context.Context, source.Info) (*object.Data, error) {
		return nil, boom
	}))
	_, err := r.Create(context.Background(), source.New("/x.png"))
	if !errors.Is(err, ErrDataUnavailable) || !errors.Is(err, boom) {
		t.Errorf("err = %v, want ErrDataUnavailable wrapping boom", err)
	}
}

func TestCreateCanceled(t *testing.T) {
	r, file, _ := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Create(ctx, source.New(file)); err == nil {
		t.Error("Create with canceled context succeeded")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(source.TypeMemory, MemoryLoader{})
	r.Register(source.TypeMemory, Func(func(context.Context, source.Info) (*object.Data, error) {
		return object.NewData([]byte("x")), nil
	}))
	d, err := r.Create(context.Background(), source.FromBytes(payload))
	if err != nil || string(d.Bytes()) != "x" {
		t.Errorf("Create = %v, %v; want replaced loader output", d, err)
	}
	r.Unregister(source.TypeMemory)
	if len(r.Types()) != 0 {
		t.Errorf("Types = %v, want none", r.Types())
	}
}

func TestDecodeDataURIPlain(t *testing.T) {
	got, err := decodeDataURI("data:image/svg+xml,%3Csvg%3E")
	if err != nil || string(got) != "<svg>" {
		t.Errorf("decodeDataURI = %q, %v; want \"<svg>\"", got, err)
	}
}
