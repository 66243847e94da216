/*
DESCRIPTION
  raster.go provides Plane, the immutable multi-channel image grid that the
  detection pipeline operates on.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

// Package raster provides Plane, a read-only grayscale or 3-channel image
// stored as float64 samples in the 0-255 range, together with helpers to
// convert to and from image.Image, decode files and scale.
//
// Planes are never mutated once built. Sub returns a view that shares
// storage with its parent.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// Plane is an immutable height x width x channels grid of samples. Samples
// for a pixel are interleaved; rows are stored contiguously.
type Plane struct {
	w, h, c int
	stride  int // Samples between the start of consecutive rows.
	off     int // Offset of the first sample of this view.
	pix     []float64
}

// New returns a Plane of the given size holding pix, which must contain
// width*height*channels samples in row-major, channel-interleaved order.
// If pix is nil a zero filled Plane is returned. pix is not copied and must
// not be modified afterwards.
func New(width, height, channels int, pix []float64) (Plane, error) {
	if width <= 0 || height <= 0 {
		return Plane{}, fmt.Errorf("invalid plane size %dx%d", width, height)
	}
	if channels != 1 && channels != 3 {
		return Plane{}, fmt.Errorf("unsupported channel count: %d", channels)
	}
	n := width * height * channels
	if pix == nil {
		pix = make([]float64, n)
	}
	if len(pix) != n {
		return Plane{}, fmt.Errorf("sample count %d does not match %dx%dx%d", len(pix), width, height, channels)
	}
	return Plane{w: width, h: height, c: channels, stride: width * channels, pix: pix}, nil
}

// Width returns the number of columns.
func (p Plane) Width() int { return p.w }

// Height returns the number of rows.
func (p Plane) Height() int { return p.h }

// Channels returns 1 for grayscale planes and 3 for colour planes.
func (p Plane) Channels() int { return p.c }

// Empty reports whether p holds no samples.
func (p Plane) Empty() bool { return p.w == 0 || p.h == 0 }

// Bounds returns the rectangle (0, 0, width, height).
func (p Plane) Bounds() image.Rectangle { return image.Rect(0, 0, p.w, p.h) }

// Size returns the plane size as a point (width, height).
func (p Plane) Size() image.Point { return image.Pt(p.w, p.h) }

// At returns sample ch of the pixel at column x, row y.
func (p Plane) At(x, y, ch int) float64 {
	return p.pix[p.off+y*p.stride+x*p.c+ch]
}

// Row returns the samples of row y. The returned slice aliases the plane and
// must not be modified.
func (p Plane) Row(y int) []float64 {
	i := p.off + y*p.stride
	return p.pix[i : i+p.w*p.c : i+p.w*p.c]
}

// Sub returns the portion of p within r as a view sharing p's storage. r is
// clipped to p's bounds; an empty intersection yields an empty Plane.
func (p Plane) Sub(r image.Rectangle) Plane {
	r = r.Intersect(p.Bounds())
	if r.Empty() {
		return Plane{c: p.c}
	}
	return Plane{
		w:      r.Dx(),
		h:      r.Dy(),
		c:      p.c,
		stride: p.stride,
		off:    p.off + r.Min.Y*p.stride + r.Min.X*p.c,
		pix:    p.pix,
	}
}

// Samples returns a copy of p's samples in row-major order.
func (p Plane) Samples() []float64 {
	out := make([]float64, 0, p.w*p.h*p.c)
	for y := 0; y < p.h; y++ {
		out = append(out, p.Row(y)...)
	}
	return out
}

// Gray returns a single channel version of p. Grayscale planes are returned
// unchanged; colour planes are assumed to be in RGB order.
func (p Plane) Gray() Plane {
	if p.c == 1 || p.Empty() {
		return p
	}
	out := make([]float64, p.w*p.h)
	for y := 0; y < p.h; y++ {
		row := p.Row(y)
		for x := 0; x < p.w; x++ {
			s := row[x*3 : x*3+3]
			out[y*p.w+x] = 0.299*s[0] + 0.587*s[1] + 0.114*s[2]
		}
	}
	return Plane{w: p.w, h: p.h, c: 1, stride: p.w, pix: out}
}

// RGB returns a three channel version of p. Colour planes are returned
// unchanged; grayscale samples are copied to every channel.
func (p Plane) RGB() Plane {
	if p.c == 3 || p.Empty() {
		return p
	}
	out := make([]float64, p.w*p.h*3)
	for y := 0; y < p.h; y++ {
		for x, v := range p.Row(y) {
			i := (y*p.w + x) * 3
			out[i], out[i+1], out[i+2] = v, v, v
		}
	}
	return Plane{w: p.w, h: p.h, c: 3, stride: p.w * 3, pix: out}
}

// FromImage converts img to a Plane. Gray and Gray16 images produce single
// channel planes, everything else produces an RGB plane.
func FromImage(img image.Image) (Plane, error) {
	if img == nil {
		return Plane{}, errors.New("nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Plane{}, errors.New("image is empty")
	}

	switch src := img.(type) {
	case *image.Gray:
		pix := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return New(w, h, 1, pix)
	case *image.Gray16:
		pix := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return New(w, h, 1, pix)
	}

	pix := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			pix[i], pix[i+1], pix[i+2] = float64(r>>8), float64(g>>8), float64(bl>>8)
		}
	}
	return New(w, h, 3, pix)
}

// Image converts p to an *image.Gray or *image.RGBA, rounding and clamping
// samples to 0-255.
func (p Plane) Image() image.Image {
	r := image.Rect(0, 0, p.w, p.h)
	if p.c == 1 {
		img := image.NewGray(r)
		for y := 0; y < p.h; y++ {
			row := p.Row(y)
			for x := 0; x < p.w; x++ {
				img.SetGray(x, y, color.Gray{Y: clamp8(row[x])})
			}
		}
		return img
	}

	img := image.NewRGBA(r)
	for y := 0; y < p.h; y++ {
		row := p.Row(y)
		for x := 0; x < p.w; x++ {
			s := row[x*3 : x*3+3]
			img.SetRGBA(x, y, color.RGBA{R: clamp8(s[0]), G: clamp8(s[1]), B: clamp8(s[2]), A: 0xff})
		}
	}
	return img
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
