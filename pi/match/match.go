/*
DESCRIPTION
  match.go provides the match surface provider interface and the threshold
  and peak operations over match surfaces.

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

// Package match provides template matching primitives. A match surface is a
// *mat.Dense holding one similarity score per top-left placement of a
// pattern within an image, so for an image of height H and width W and a
// pattern of height h and width w the surface has H-h+1 rows and W-w+1
// columns. Element (r, c) scores the placement with its top-left corner at
// column c, row r. Higher scores are better matches.
package match

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/traysense/pi/raster"
)

// ErrTooLarge is returned when a pattern does not fit within the image it is
// matched against.
var ErrTooLarge = errors.New("pattern larger than image")

// Provider computes match surfaces. Implementations must be deterministic for
// identical inputs and must score better matches higher.
type Provider interface {
	Match(img, pattern raster.Plane) (*mat.Dense, error)
}

// Candidate is a match surface location and its score. Pt.X is the surface
// column and Pt.Y the surface row, i.e. the top-left corner of the pattern
// placement in image coordinates.
type Candidate struct {
	Pt    image.Point
	Score float64
}

// Check returns an error if pattern cannot be matched against img.
func Check(img, pattern raster.Plane) error {
	switch {
	case img.Empty():
		return errors.New("image is empty")
	case pattern.Empty():
		return errors.New("pattern is empty")
	case img.Channels() != pattern.Channels():
		return fmt.Errorf("channel mismatch: image has %d, pattern has %d", img.Channels(), pattern.Channels())
	case pattern.Width() > img.Width() || pattern.Height() > img.Height():
		return fmt.Errorf("%w: %v > %v", ErrTooLarge, pattern.Size(), img.Size())
	}
	return nil
}

// Candidates returns every location of s whose score is strictly greater
// than threshold, in row-major order.
func Candidates(s mat.Matrix, threshold float64) []Candidate {
	var out []Candidate
	rows, cols := s.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := s.At(r, c); v > threshold {
				out = append(out, Candidate{Pt: image.Pt(c, r), Score: v})
			}
		}
	}
	return out
}

// Peak returns the location of the global maximum of s. If several
// locations share the maximum score the first in row-major order is
// returned.
func Peak(s mat.Matrix) Candidate {
	best := Candidate{Score: s.At(0, 0)}
	rows, cols := s.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := s.At(r, c); v > best.Score {
				best = Candidate{Pt: image.Pt(c, r), Score: v}
			}
		}
	}
	return best
}
