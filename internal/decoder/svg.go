// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package decoder

import (
	"fmt"
	"image"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	intImage "github.com/gogpu/ace/internal/image"
	"github.com/gogpu/ace/internal/object"
)

// rasterizeSVG renders obj's document into a width x height bitmap.
// The view box is stretched to the target; callers pick an aspect-correct
// size when they need one.
func rasterizeSVG(obj *object.Object, width, height int) (*intImage.ImageBuf, error) {
	buf, err := intImage.NewImageBuf(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	dst := buf.ToStdImage()
	ok := obj.WithSVG(func(icon *oksvg.SvgIcon) {
		icon.SetTarget(0, 0, float64(width), float64(height))
		scanner := rasterx.NewScannerGV(width, height, dst, image.Rect(0, 0, width, height))
		icon.Draw(rasterx.NewDasher(width, height, scanner), 1)
	})
	if !ok {
		return nil, fmt.Errorf("%w: object has no svg document", ErrNoData)
	}
	return buf, nil
}
