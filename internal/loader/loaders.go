// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package loader

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/gogpu/ace/internal/object"
	"github.com/gogpu/ace/internal/source"
)

// MaxNetworkBytes caps the size of a downloaded image.
const MaxNetworkBytes = 64 << 20

// FileLoader reads local files. Both bare paths and file:// URIs work.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(ctx context.Context, src source.Info) (*object.Data, error) {
	return readFile(ctx, trimScheme(src.Src(), "file://"))
}

func readFile(ctx context.Context, name string) (*object.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDataUnavailable, name)
	}
	return object.NewData(buf), nil
}

// NetworkLoader fetches http and https URLs.
type NetworkLoader struct {
	Client *http.Client
}

// Load implements Loader.
func (l NetworkLoader) Load(ctx context.Context, src source.Info) (*object.Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Src(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoaderUnavailable, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrDataUnavailable, src.Src(), resp.Status)
	}
	buf, err := io.ReadAll(io.LimitReader(resp.Body, MaxNetworkBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if len(buf) > MaxNetworkBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDataUnavailable, src.Src(), MaxNetworkBytes)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: %s: empty body", ErrDataUnavailable, src.Src())
	}
	return object.NewData(buf), nil
}

// ResourceLoader reads resource:// URIs from a bundle file system.
// A source with a bundle name resolves under <bundle>/<module>/.
type ResourceLoader struct {
	FS fs.FS
}

// Load implements Loader.
func (l ResourceLoader) Load(ctx context.Context, src source.Info) (*object.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimLeft(trimScheme(src.Src(), "resource://"), "/")
	if bundle, module := src.Bundle(); bundle != "" {
		name = path.Join(bundle, module, name)
	}
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: invalid resource path %q", ErrLoaderUnavailable, name)
	}
	buf, err := fs.ReadFile(l.FS, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: resource %s is empty", ErrDataUnavailable, name)
	}
	// Bundle contents outlive the request and are shared with other readers.
	return object.NewSharedData(buf), nil
}

// MemoryLoader serves the bytes carried by a memory source.
type MemoryLoader struct{}

// Load implements Loader.
func (MemoryLoader) Load(_ context.Context, src source.Info) (*object.Data, error) {
	if len(src.Data()) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrDataUnavailable)
	}
	return object.NewSharedData(src.Data()), nil
}

// DataURILoader decodes RFC 2397 data: URIs.
type DataURILoader struct{}

// Load implements Loader.
func (DataURILoader) Load(_ context.Context, src source.Info) (*object.Data, error) {
	buf, err := decodeDataURI(src.Src())
	if err != nil {
		return nil, err
	}
	return object.NewData(buf), nil
}

func decodeDataURI(uri string) ([]byte, error) {
	rest, ok := cutPrefixFold(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data URI", ErrLoaderUnavailable)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data URI has no payload", ErrDataUnavailable)
	}
	var buf []byte
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.TrimRight(strings.TrimSpace(payload), "=")
		b, err := base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %w", ErrDataUnavailable, err)
		}
		buf = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		buf = []byte(s)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty data URI", ErrDataUnavailable)
	}
	return buf, nil
}

// PixelMapLoader accepts pixel-map sources. They carry decoded pixels, so
// there are no encoded bytes to read.
type PixelMapLoader struct{}

// Load implements Loader.
func (PixelMapLoader) Load(_ context.Context, src source.Info) (*object.Data, error) {
	if src.PixelMap().IsEmpty() {
		return nil, fmt.Errorf("%w: empty pixel map", ErrDataUnavailable)
	}
	return nil, nil
}

// ThumbnailLoader reads thumbnail://<path> sources from the local file
// system. The provider keeps their decodes in the thumbnail cache.
type ThumbnailLoader struct{}

// Load implements Loader.
func (ThumbnailLoader) Load(ctx context.Context, src source.Info) (*object.Data, error) {
	return readFile(ctx, trimScheme(src.Src(), "thumbnail://"))
}

func trimScheme(s, scheme string) string {
	if rest, ok := cutPrefixFold(s, scheme); ok {
		return rest
	}
	return s
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
