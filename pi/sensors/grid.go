/*
DESCRIPTION
  grid.go provides the per-cell score grids produced for each sensor pattern
  and their arbitration into a single sensor type per tray cell.

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

package sensors

import (
	"errors"
	"fmt"
	"image"
)

// None is the sensor type of a cell in which no pattern was found.
const None = -1

// Match is the best placement of one pattern within one cell.
type Match struct {
	Offset image.Point // Top-left of the placement relative to the cell.
	Score  float64
	Found  bool // Score exceeded the pattern threshold.
}

// ScoreGrid holds the Match of a single pattern for every cell of a tray.
type ScoreGrid struct {
	Pattern    string
	rows, cols int
	cells      []Match
}

// NewScoreGrid returns a ScoreGrid of rows x cols cells with nothing found.
func NewScoreGrid(pattern string, rows, cols int) *ScoreGrid {
	return &ScoreGrid{Pattern: pattern, rows: rows, cols: cols, cells: make([]Match, rows*cols)}
}

// Rows returns the number of cell rows.
func (g *ScoreGrid) Rows() int { return g.rows }

// Cols returns the number of cell columns.
func (g *ScoreGrid) Cols() int { return g.cols }

// At returns the Match for the cell at (row, col).
func (g *ScoreGrid) At(row, col int) Match { return g.cells[row*g.cols+col] }

// Set sets the Match for the cell at (row, col).
func (g *ScoreGrid) Set(row, col int, m Match) { g.cells[row*g.cols+col] = m }

// Scores returns the scores of all found matches as a rows x cols slice.
// Cells with nothing found score 0.
func (g *ScoreGrid) Scores() [][]float64 {
	out := make([][]float64, g.rows)
	for r := range out {
		out[r] = make([]float64, g.cols)
		for c := range out[r] {
			if m := g.At(r, c); m.Found {
				out[r][c] = m.Score
			}
		}
	}
	return out
}

// Cell is the arbitrated result for one tray cell.
type Cell struct {
	Type   int // Index of the winning pattern, or None.
	Score  float64
	Offset image.Point
}

// Arbitrated holds the winning sensor type of every cell of a tray.
type Arbitrated struct {
	patterns   []string
	rows, cols int
	cells      []Cell
}

// Rows returns the number of cell rows.
func (a *Arbitrated) Rows() int { return a.rows }

// Cols returns the number of cell columns.
func (a *Arbitrated) Cols() int { return a.cols }

// At returns the result for the cell at (row, col).
func (a *Arbitrated) At(row, col int) Cell { return a.cells[row*a.cols+col] }

// Patterns returns the pattern names, indexed by sensor type.
func (a *Arbitrated) Patterns() []string { return append([]string(nil), a.patterns...) }

// Labels returns the sensor type of every cell as a rows x cols slice.
func (a *Arbitrated) Labels() [][]int {
	out := make([][]int, a.rows)
	for r := range out {
		out[r] = make([]int, a.cols)
		for c := range out[r] {
			out[r][c] = a.At(r, c).Type
		}
	}
	return out
}

// Counts returns the number of cells holding each sensor type, indexed by
// type, and the number of empty cells.
func (a *Arbitrated) Counts() (counts []int, empty int) {
	counts = make([]int, len(a.patterns))
	for _, c := range a.cells {
		if c.Type == None {
			empty++
			continue
		}
		counts[c.Type]++
	}
	return counts, empty
}

// Arbitrate resolves grids, one per pattern, into the winning pattern of
// each cell. A cell takes the pattern with the highest positive score among
// those found there, the lowest pattern index winning exact ties. A cell
// where nothing was found is None with score 0. All grids must have the
// same dimensions.
func Arbitrate(grids []*ScoreGrid) (*Arbitrated, error) {
	if len(grids) == 0 {
		return nil, errors.New("no score grids to arbitrate")
	}
	rows, cols := grids[0].rows, grids[0].cols
	a := &Arbitrated{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
	for k, g := range grids {
		if g.rows != rows || g.cols != cols {
			return nil, fmt.Errorf("score grid %d (%s) is %dx%d, want %dx%d", k, g.Pattern, g.rows, g.cols, rows, cols)
		}
		a.patterns = append(a.patterns, g.Pattern)
	}

	for i := range a.cells {
		best := Cell{Type: None}
		for k, g := range grids {
			m := g.cells[i]
			if m.Found && m.Score > best.Score {
				best = Cell{Type: k, Score: m.Score, Offset: m.Offset}
			}
		}
		a.cells[i] = best
	}
	return a, nil
}
