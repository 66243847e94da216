/*
DESCRIPTION
  corners.go provides assignment of calibration points to the four logical
  tray corners, and the errors returned when rectification cannot proceed.

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

// Package rectify maps a skewed camera view of a tray onto a canonical,
// tray aligned image. Four calibration points are assigned to the corners of
// the tray and a planar homography taking them to the corners of the output
// image is estimated.
//
// Corners are always ordered top-left, bottom-left, bottom-right, top-right
// and points are (X, Y) with X the column and Y the row.
package rectify

import (
	"errors"
	"fmt"
	"math"

	"github.com/ausocean/traysense/pi/cluster"
)

// Corner indices.
const (
	TopLeft = iota
	BottomLeft
	BottomRight
	TopRight
)

// Rectification errors.
var (
	ErrAmbiguousCorners = errors.New("ambiguous corner correspondence")
	ErrDegenerate       = errors.New("degenerate homography")
)

// InsufficientPointsError is returned when fewer than four calibration points
// are available.
type InsufficientPointsError struct {
	Count int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient calibration points: have %d, need 4", e.Count)
}

// Point is a position in image coordinates.
type Point struct {
	X, Y float64
}

// Centers returns the centers of dets as Points.
func Centers(dets []cluster.Detection) []Point {
	out := make([]Point, len(dets))
	for i, d := range dets {
		out[i] = Point{X: float64(d.Center.X), Y: float64(d.Center.Y)}
	}
	return out
}

// Quad returns the corners of the axis aligned box (0, 0, width, height) in
// corner order.
func Quad(width, height float64) [4]Point {
	return [4]Point{
		TopLeft:     {0, 0},
		BottomLeft:  {0, height},
		BottomRight: {width, height},
		TopRight:    {width, 0},
	}
}

// AssignCorners assigns the first four of pts to the corners of a source
// image of the given size. Each corner of the image takes the nearest point,
// the earlier point winning exact ties. If two corners take the same point
// ErrAmbiguousCorners is returned. Fewer than four points yields an
// *InsufficientPointsError.
func AssignCorners(pts []Point, width, height float64) ([4]Point, error) {
	var out [4]Point
	if len(pts) < 4 {
		return out, &InsufficientPointsError{Count: len(pts)}
	}

	var taken [4]bool
	for i, anchor := range Quad(width, height) {
		best, bestDst := -1, math.Inf(1)
		for j, p := range pts[:4] {
			if d := math.Hypot(p.X-anchor.X, p.Y-anchor.Y); d < bestDst {
				best, bestDst = j, d
			}
		}
		if best == -1 {
			return out, fmt.Errorf("%w: no finite point for corner %d", ErrAmbiguousCorners, i)
		}
		if taken[best] {
			return out, fmt.Errorf("%w: point %d nearest to more than one corner", ErrAmbiguousCorners, best)
		}
		taken[best] = true
		out[i] = pts[best]
	}
	return out, nil
}
