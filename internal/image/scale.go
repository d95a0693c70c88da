// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package image

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Quality selects the resampling kernel used by Resize.
type Quality uint8

const (
	// QualityLow uses nearest-neighbor sampling.
	QualityLow Quality = iota

	// QualityMedium uses bilinear sampling.
	QualityMedium

	// QualityHigh uses Catmull-Rom sampling.
	QualityHigh
)

func (q Quality) scaler() draw.Scaler {
	switch q {
	case QualityLow:
		return draw.NearestNeighbor
	case QualityMedium:
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

// Resize resamples src to exactly width x height.
func Resize(src *ImageBuf, width, height int, q Quality) (*ImageBuf, error) {
	if src.IsEmpty() {
		return nil, ErrInvalidDimensions
	}
	if width == src.width && height == src.height {
		return src.Clone(), nil
	}
	dst, err := NewImageBuf(width, height)
	if err != nil {
		return nil, err
	}
	out := dst.ToStdImage()
	q.scaler().Scale(out, out.Bounds(), src.ToStdImage(), image.Rect(0, 0, src.width, src.height), draw.Src, nil)
	return dst, nil
}

// NativeScale returns the largest power-of-two scale 1/2^n that is not
// greater than requested, together with n. Requests >= 1 return (1, 0).
func NativeScale(requested float64) (float64, int) {
	if requested >= 1 || requested <= 0 || math.IsNaN(requested) {
		return 1, 0
	}
	n := int(math.Ceil(-math.Log2(requested)))
	// Log2 rounding can land one step short of the requested bound.
	for math.Ldexp(1, -n) > requested {
		n++
	}
	return math.Ldexp(1, -n), n
}

// Halve returns a half-size copy of src using a 2x2 box filter.
// Odd dimensions round down; the result is never smaller than 1x1.
func Halve(src *ImageBuf) *ImageBuf {
	srcW, srcH := src.Bounds()
	dstW := max(1, srcW/2)
	dstH := max(1, srcH/2)
	dst, _ := NewImageBuf(dstW, dstH)

	for dy := range dstH {
		for dx := range dstW {
			sx, sy := dx*2, dy*2
			r0, g0, b0, a0 := src.GetRGBA(sx, sy)
			r1, g1, b1, a1 := src.GetRGBA(min(sx+1, srcW-1), sy)
			r2, g2, b2, a2 := src.GetRGBA(sx, min(sy+1, srcH-1))
			r3, g3, b3, a3 := src.GetRGBA(min(sx+1, srcW-1), min(sy+1, srcH-1))

			dst.SetRGBA(dx, dy,
				avg4(r0, r1, r2, r3),
				avg4(g0, g1, g2, g3),
				avg4(b0, b1, b2, b3),
				avg4(a0, a1, a2, a3))
		}
	}
	return dst
}

// HalveN applies Halve n times. n <= 0 returns src unchanged.
func HalveN(src *ImageBuf, n int) *ImageBuf {
	out := src
	for range n {
		if out.width == 1 && out.height == 1 {
			break
		}
		out = Halve(out)
	}
	return out
}

func avg4(a, b, c, d uint8) uint8 {
	return uint8((uint16(a) + uint16(b) + uint16(c) + uint16(d)) / 4)
}

// FitSize scales (w, h) uniformly so it fits inside (maxW, maxH), rounding
// to the nearest pixel and never returning a zero dimension.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return w, h
	}
	s := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return max(1, int(math.Round(float64(w)*s))), max(1, int(math.Round(float64(h)*s)))
}
