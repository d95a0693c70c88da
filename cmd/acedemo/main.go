// Command acedemo loads images through the ace pipeline and writes the
// decoded results as PNG files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/ace"
)

func main() {
	var (
		config  = flag.String("config", "", "YAML config file")
		size    = flag.String("size", "", "target size WxH (empty = intrinsic)")
		force   = flag.Bool("force", false, "resize to exactly -size")
		workers = flag.Int("workers", 0, "background workers (0 = from config)")
		backend = flag.String("cache", "", "compressed cache backend: file, bolt or none")
		dir     = flag.String("cache-dir", "", "compressed cache directory")
		out     = flag.String("out", "", "directory for decoded PNGs (empty = no output)")
		repeat  = flag.Int("repeat", 1, "load every source this many times")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: acedemo [flags] source...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *verbose {
		ace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := ace.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = ace.LoadConfig(*config); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	opts := []ace.Option{ace.WithConfig(cfg)}
	if *workers > 0 {
		opts = append(opts, ace.WithWorkers(*workers))
	}
	if *backend != "" {
		opts = append(opts, ace.WithCompressedCache(*backend))
	}
	if *dir != "" {
		opts = append(opts, ace.WithCacheDir(*dir))
	}

	target, err := parseSize(*size)
	if err != nil {
		log.Fatalf("Invalid -size: %v", err)
	}

	p, err := ace.New(opts...)
	if err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i, uri := range flag.Args() {
		for r := range *repeat {
			wg.Add(1)
			go func() {
				defer wg.Done()
				load(p, uri, target, *force, *out, i, r)
			}()
		}
	}
	wg.Wait()

	st := p.Stats()
	log.Printf("Loaded %d request(s) in %v: objects=%d canvases=%d thumbnails=%d hits=%d misses=%d tasks=%d/%d",
		flag.NArg()**repeat, time.Since(start).Round(time.Millisecond),
		st.Objects, st.Canvases, st.Thumbnails, st.ObjectHits, st.ObjectMisses,
		st.TasksCompleted, st.TasksSubmitted)

	if err := p.Close(); err != nil {
		log.Fatalf("Failed to close pipeline: %v", err)
	}
}

func load(p *ace.Pipeline, uri string, size ace.Size, force bool, out string, idx, rep int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	img, err := p.Load(ctx, ace.NewSource(uri), size, force)
	if err != nil {
		log.Printf("%s: %v", uri, err)
		return
	}
	defer img.Release()

	kind := "bitmap"
	if img.IsCompressed() {
		kind = "compressed"
	}
	log.Printf("%s: %dx%d %s", uri, img.Width(), img.Height(), kind)

	if out == "" || rep > 0 {
		return
	}
	px, err := p.Pixels(img)
	if err != nil {
		log.Printf("%s: %v", uri, err)
		return
	}
	data, err := px.EncodeToBytes()
	if err != nil {
		log.Printf("%s: encode: %v", uri, err)
		return
	}
	name := filepath.Join(out, fmt.Sprintf("%03d-%dx%d.png", idx, img.Width(), img.Height()))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		log.Printf("%s: %v", uri, err)
		return
	}
	log.Printf("%s: saved to %s", uri, name)
}

func parseSize(s string) (ace.Size, error) {
	if s == "" {
		return ace.Size{}, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return ace.Size{}, fmt.Errorf("%q is not WxH", s)
	}
	var size ace.Size
	if _, err := fmt.Sscanf(w+" "+h, "%g %g", &size.Width, &size.Height); err != nil {
		return ace.Size{}, fmt.Errorf("%q: %w", s, err)
	}
	return size, nil
}
