/*
DESCRIPTION
  report.go provides Report, a serialisable summary of the sensors found in
  a tray.

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

package traysense

import (
	"github.com/ausocean/traysense/pi/sensors"
	"github.com/ausocean/traysense/pi/tray"
)

// ReportCell is the sensor found in one tray cell.
type ReportCell struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Type   int     `json:"type"`             // Sensor type, -1 for an empty cell.
	Sensor string  `json:"sensor,omitempty"` // Sensor name, empty for an empty cell.
	Score  float64 `json:"score"`
	X      int     `json:"x"` // Match position within the rectified image.
	Y      int     `json:"y"`
}

// Report summarises the sensors found in a tray.
type Report struct {
	Tray    string         `json:"tray"`
	Rows    int            `json:"rows"`
	Cols    int            `json:"cols"`
	Sensors []string       `json:"sensors"`
	Counts  map[string]int `json:"counts"`
	Empty   int            `json:"empty"`
	Cells   [][]ReportCell `json:"cells"`
}

// NewReport returns the Report for arb, found in a tray image rectified to
// grid.
func NewReport(grid *tray.Grid, arb *sensors.Arbitrated) *Report {
	names := arb.Patterns()
	counts, empty := arb.Counts()
	r := &Report{
		Tray:    grid.Name(),
		Rows:    arb.Rows(),
		Cols:    arb.Cols(),
		Sensors: names,
		Counts:  make(map[string]int, len(names)),
		Empty:   empty,
		Cells:   make([][]ReportCell, arb.Rows()),
	}
	for i, n := range names {
		r.Counts[n] = counts[i]
	}
	for row := range r.Cells {
		r.Cells[row] = make([]ReportCell, arb.Cols())
		for col := range r.Cells[row] {
			c := arb.At(row, col)
			rc := ReportCell{Row: row, Col: col, Type: c.Type, Score: c.Score}
			if c.Type != sensors.None {
				rc.Sensor = names[c.Type]
				pos := grid.Pos(row, col).Add(c.Offset)
				rc.X, rc.Y = pos.X, pos.Y
			}
			r.Cells[row][col] = rc
		}
	}
	return r
}
