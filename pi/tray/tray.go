/*
DESCRIPTION
  tray.go provides Grid, the mapping between the cells of a sensor tray and
  pixel rectangles in a rectified tray image.

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

// Package tray describes the cell layout of a sensor tray. Cells are
// centered within the tray with equal margins on opposite sides, and cells
// are addressed by (row, col), both starting at 0 from the top-left.
package tray

import (
	"fmt"
	"image"
	"iter"
	"math"

	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/raster"
)

// Spec holds the dimensions of a tray in unscaled units.
type Spec struct {
	Name       string
	Rows, Cols int
	Width      float64 // Overall tray width.
	Height     float64 // Overall tray height.
	CellWidth  float64
	CellHeight float64
}

// Grid is a tray layout with all lengths scaled to pixels. It is read-only
// once built and safe for concurrent use.
type Grid struct {
	name                  string
	rows, cols            int
	width, height         float64
	cellWidth, cellHeight float64
	marginX, marginY      float64
}

// New returns the Grid for s with every length multiplied by scale.
func New(s Spec, scale float64) (*Grid, error) {
	if s.Rows <= 0 {
		return nil, param.Invalid("tray.rows", "must be positive, got %d", s.Rows)
	}
	if s.Cols <= 0 {
		return nil, param.Invalid("tray.cols", "must be positive, got %d", s.Cols)
	}
	if !positive(scale) {
		return nil, param.Invalid("tray.scale", "must be positive, got %v", scale)
	}
	for _, l := range []struct {
		name string
		v    float64
	}{
		{"tray.width", s.Width},
		{"tray.height", s.Height},
		{"cell.width", s.CellWidth},
		{"cell.height", s.CellHeight},
	} {
		if !positive(l.v) {
			return nil, param.Invalid(l.name, "must be positive, got %v", l.v)
		}
	}

	g := &Grid{
		name:       s.Name,
		rows:       s.Rows,
		cols:       s.Cols,
		width:      s.Width * scale,
		height:     s.Height * scale,
		cellWidth:  s.CellWidth * scale,
		cellHeight: s.CellHeight * scale,
	}
	g.marginX = (g.width - float64(g.cols)*g.cellWidth) / 2
	g.marginY = (g.height - float64(g.rows)*g.cellHeight) / 2
	if g.marginX < 0 {
		return nil, param.Invalid("cell.width", "%d cells of width %v exceed tray width %v", s.Cols, s.CellWidth, s.Width)
	}
	if g.marginY < 0 {
		return nil, param.Invalid("cell.height", "%d cells of height %v exceed tray height %v", s.Rows, s.CellHeight, s.Height)
	}
	return g, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Name returns the tray name.
func (g *Grid) Name() string { return g.name }

// Rows returns the number of cell rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of cell columns.
func (g *Grid) Cols() int { return g.cols }

// Len returns the number of cells.
func (g *Grid) Len() int { return g.rows * g.cols }

// Size returns the tray size in whole pixels. This is the size a tray image
// should be rectified to.
func (g *Grid) Size() (width, height int) {
	return int(g.width), int(g.height)
}

// Margins returns the horizontal and vertical margins between the tray edge
// and the outermost cells.
func (g *Grid) Margins() (x, y float64) { return g.marginX, g.marginY }

// Pos returns the top-left corner of the cell at (row, col).
func (g *Grid) Pos(row, col int) image.Point {
	return image.Pt(g.edgeX(col), g.edgeY(row))
}

// Bounds returns the pixel rectangle of the cell at (row, col). Every edge is
// derived from the margin and the cell index alone, so neighbouring cells
// share edges exactly and cell sizes differ from the scaled cell size by at
// most one pixel. Cells outside the grid have empty bounds.
func (g *Grid) Bounds(row, col int) image.Rectangle {
	if !g.contains(row, col) {
		return image.Rectangle{}
	}
	return image.Rect(g.edgeX(col), g.edgeY(row), g.edgeX(col+1), g.edgeY(row+1))
}

func (g *Grid) edgeX(col int) int { return int(g.marginX + float64(col)*g.cellWidth) }
func (g *Grid) edgeY(row int) int { return int(g.marginY + float64(row)*g.cellHeight) }

func (g *Grid) contains(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// Cell returns the part of img covered by the cell at (row, col). The
// result shares storage with img.
func (g *Grid) Cell(img raster.Plane, row, col int) raster.Plane {
	return img.Sub(g.Bounds(row, col))
}

// All yields every (row, col) pair in row-major order.
func (g *Grid) All() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for r := 0; r < g.rows; r++ {
			for c := 0; c < g.cols; c++ {
				if !yield(r, c) {
					return
				}
			}
		}
	}
}

func (g *Grid) String() string {
	return fmt.Sprintf("%s: %dx%d cells of %.1fx%.1f in %.1fx%.1f", g.name, g.rows, g.cols, g.cellWidth, g.cellHeight, g.width, g.height)
}
