/*
DESCRIPTION
  synth.go provides deterministic synthetic patterns and scenes for
  exercising the detection pipeline without camera images.

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

// Package synth builds synthetic grayscale patterns and scenes. Patterns are
// seeded block noise so that different seeds correlate poorly with each other
// and with shifted copies of themselves.
package synth

import (
	"image"
	"math/rand"

	"github.com/ausocean/traysense/pi/raster"
)

// Pattern returns a w x h grayscale pattern of black and white blocks of the
// given block size, generated from seed.
func Pattern(w, h, block int, seed int64) raster.Plane {
	if block < 1 {
		block = 1
	}
	rng := rand.New(rand.NewSource(seed))
	bw, bh := (w+block-1)/block, (h+block-1)/block
	cells := make([]float64, bw*bh)
	for i := range cells {
		if rng.Intn(2) == 1 {
			cells[i] = 255
		}
	}

	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = cells[(y/block)*bw+x/block]
		}
	}
	p, err := raster.New(w, h, 1, pix)
	if err != nil {
		panic(err) // Only reachable for non-positive sizes.
	}
	return p
}

// Canvas is a mutable grayscale image used to compose scenes.
type Canvas struct {
	w, h int
	pix  []float64
}

// NewCanvas returns a w x h canvas filled with bg.
func NewCanvas(w, h int, bg float64) *Canvas {
	c := &Canvas{w: w, h: h, pix: make([]float64, w*h)}
	for i := range c.pix {
		c.pix[i] = bg
	}
	return c
}

// Paste copies the first channel of p onto the canvas with p's top-left
// corner at at. Parts falling outside the canvas are dropped.
func (c *Canvas) Paste(p raster.Plane, at image.Point) {
	for y := 0; y < p.Height(); y++ {
		cy := at.Y + y
		if cy < 0 || cy >= c.h {
			continue
		}
		for x := 0; x < p.Width(); x++ {
			cx := at.X + x
			if cx < 0 || cx >= c.w {
				continue
			}
			c.pix[cy*c.w+cx] = p.At(x, y, 0)
		}
	}
}

// Plane returns a copy of the canvas as a Plane.
func (c *Canvas) Plane() raster.Plane {
	pix := make([]float64, len(c.pix))
	copy(pix, c.pix)
	p, err := raster.New(c.w, c.h, 1, pix)
	if err != nil {
		panic(err)
	}
	return p
}
