// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package object

import (
	"bytes"
	"fmt"
	"math"

	"github.com/srwiley/oksvg"

	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/source"
)

// sniffLen bounds how far into the data Build looks for an <svg tag.
const sniffLen = 512

// Build parses the header of data into an Object. No pixels are decoded.
//
// Pixel-map sources wrap their handle and ignore data. SVG sources parse the
// document. Everything else is probed for size and frame count.
func Build(src source.Info, data *Data) (*Object, error) {
	if src.IsPixelMap() {
		pm := src.PixelMap()
		if pm.IsEmpty() {
			return nil, ErrNoData
		}
		return &Object{
			src:    src,
			width:  pm.Width(),
			height: pm.Height(),
			frames: 1,
			kind:   KindPixelMap,
			format: "pixelmap",
			pmap:   pm,
		}, nil
	}

	buf := data.Bytes()
	if len(buf) == 0 {
		return nil, ErrNoData
	}

	if src.IsSVG() || looksLikeSVG(buf) {
		return buildSVG(src, data)
	}

	cfg, err := intImage.DecodeConfig(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrParse, cfg.Width, cfg.Height)
	}

	frames := countFrames(cfg.Format, buf)
	kind := KindStatic
	if frames > 1 {
		kind = KindAnimated
	}
	return &Object{
		src:    src,
		width:  cfg.Width,
		height: cfg.Height,
		frames: frames,
		kind:   kind,
		format: cfg.Format,
		data:   data,
	}, nil
}

func buildSVG(src source.Info, data *Data) (*Object, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data.Bytes()), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: svg: %w", ErrParse, err)
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: svg has no usable viewBox or size", ErrParse)
	}
	return &Object{
		src:    src,
		width:  w,
		height: h,
		frames: 1,
		kind:   KindSVG,
		format: "svg",
		data:   data,
		svg:    icon,
	}, nil
}

func looksLikeSVG(buf []byte) bool {
	head := buf[:min(len(buf), sniffLen)]
	return bytes.Contains(head, []byte("<svg"))
}
