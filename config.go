// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/ace/internal/cache"
	"github.com/gogpu/ace/internal/provider"
)

// Compressed cache backends.
const (
	CompressedFile = "file"
	CompressedBolt = "bolt"
	CompressedNone = "none"
)

// ErrInvalidConfig is returned by Validate and LoadConfig.
var ErrInvalidConfig = errors.New("ace: invalid config")

// Config holds pipeline settings. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// Workers is the number of background decode goroutines.
	// Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	ObjectCacheSize    int `yaml:"object_cache_size"`
	CanvasCacheSize    int `yaml:"canvas_cache_size"`
	ThumbnailCacheSize int `yaml:"thumbnail_cache_size"`

	// CompressedCache selects the compressed texture store: "file", "bolt"
	// or "none".
	CompressedCache string `yaml:"compressed_cache"`

	// CacheDir holds the compressed store. Empty means a directory under
	// os.UserCacheDir.
	CacheDir string `yaml:"cache_dir"`

	// PixelMapDecode routes canvas requests through the pixel-map path.
	PixelMapDecode bool `yaml:"pixel_map_decode"`

	// NetworkTimeout bounds each network fetch.
	NetworkTimeout time.Duration `yaml:"network_timeout"`

	// ResourceRoot is the directory resource:// sources resolve against.
	// Empty disables resource sources.
	ResourceRoot string `yaml:"resource_root"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Workers:            runtime.GOMAXPROCS(0),
		ObjectCacheSize:    cache.DefaultCapacity,
		CanvasCacheSize:    cache.DefaultCanvasCapacity,
		ThumbnailCacheSize: provider.DefaultThumbnailCapacity,
		CompressedCache:    CompressedFile,
		NetworkTimeout:     30 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Workers < 0:
		return fmt.Errorf("%w: workers = %d", ErrInvalidConfig, c.Workers)
	case c.ObjectCacheSize <= 0:
		return fmt.Errorf("%w: object_cache_size = %d", ErrInvalidConfig, c.ObjectCacheSize)
	case c.CanvasCacheSize <= 0:
		return fmt.Errorf("%w: canvas_cache_size = %d", ErrInvalidConfig, c.CanvasCacheSize)
	case c.ThumbnailCacheSize < 0:
		return fmt.Errorf("%w: thumbnail_cache_size = %d", ErrInvalidConfig, c.ThumbnailCacheSize)
	case c.NetworkTimeout < 0:
		return fmt.Errorf("%w: network_timeout = %v", ErrInvalidConfig, c.NetworkTimeout)
	}
	switch c.CompressedCache {
	case CompressedFile, CompressedBolt, CompressedNone:
	default:
		return fmt.Errorf("%w: compressed_cache = %q", ErrInvalidConfig, c.CompressedCache)
	}
	return nil
}

// cacheDir resolves CacheDir.
func (c Config) cacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("ace: cache dir: %w", err)
	}
	return filepath.Join(base, "ace", "astc"), nil
}

// LoadConfig reads a YAML file over DefaultConfig. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("ace: load config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Option adjusts a Config.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

// WithWorkers sets the number of background goroutines.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithCacheDir sets the compressed store directory.
func WithCacheDir(dir string) Option {
	return func(c *Config) { c.CacheDir = dir }
}

// WithCompressedCache selects the compressed store backend.
func WithCompressedCache(backend string) Option {
	return func(c *Config) { c.CompressedCache = backend }
}

// WithCacheSizes sets the object, canvas and thumbnail cache capacities.
func WithCacheSizes(objects, canvases, thumbnails int) Option {
	return func(c *Config) {
		c.ObjectCacheSize = objects
		c.CanvasCacheSize = canvases
		c.ThumbnailCacheSize = thumbnails
	}
}

// WithPixelMapDecode toggles the pixel-map decode path.
func WithPixelMapDecode(on bool) Option {
	return func(c *Config) { c.PixelMapDecode = on }
}

// WithNetworkTimeout bounds network fetches.
func WithNetworkTimeout(d time.Duration) Option {
	return func(c *Config) { c.NetworkTimeout = d }
}

// WithResourceRoot sets the directory backing resource:// sources.
func WithResourceRoot(dir string) Option {
	return func(c *Config) { c.ResourceRoot = dir }
}
