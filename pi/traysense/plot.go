/*
DESCRIPTION
  plot.go provides plotting of calibration points and per-cell sensor scores
  for tuning detection parameters.

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
	"fmt"
	"image"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ausocean/traysense/pi/cluster"
	"github.com/ausocean/traysense/pi/sensors"
)

// PlotScores saves a heat map of the scores in g to dir as <pattern>.png.
// Rows are drawn top to bottom as in the tray image; cells with nothing
// found are drawn as 0.
func PlotScores(dir string, g *sensors.ScoreGrid) error {
	return plotToFile(filepath.Join(dir, g.Pattern+".png"), g.Pattern+" scores", "column", "row", func(p *plot.Plot) error {
		hm := plotter.NewHeatMap(scoreXYZ{g.Scores()}, palette.Heat(16, 1))
		hm.Min, hm.Max = 0, 1
		p.Add(hm)
		return nil
	})
}

// PlotCalibration saves a scatter plot of calibration points found in an
// image of the given size to dir as calibration.png.
func PlotCalibration(dir string, dets []cluster.Detection, size image.Point) error {
	x := make([]float64, len(dets))
	y := make([]float64, len(dets))
	for i, d := range dets {
		x[i] = float64(d.Center.X)
		y[i] = float64(size.Y - d.Center.Y)
	}
	return plotToFile(filepath.Join(dir, "calibration.png"), "calibration points", "x", "y", func(p *plot.Plot) error {
		s, err := plotter.NewScatter(plotterXY(x, y))
		if err != nil {
			return fmt.Errorf("could not create scatter: %w", err)
		}
		p.Add(s)
		p.X.Min, p.X.Max = 0, float64(size.X)
		p.Y.Min, p.Y.Max = 0, float64(size.Y)
		return nil
	})
}

// scoreXYZ adapts a rows x cols score slice to plotter.GridXYZ.
type scoreXYZ struct {
	z [][]float64
}

func (s scoreXYZ) Dims() (c, r int) {
	if len(s.z) == 0 {
		return 0, 0
	}
	return len(s.z[0]), len(s.z)
}

func (s scoreXYZ) Z(c, r int) float64 { return s.z[len(s.z)-1-r][c] }
func (s scoreXYZ) X(c int) float64 { return float64(c) }
func (s scoreXYZ) Y(r int) float64 { return float64(r) }

// plotToFile creates a plot with the given title and axis titles using the
// provided draw function, and then saves it to path.
func plotToFile(path, title, xTitle, yTitle string, draw func(*plot.Plot) error) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xTitle
	p.Y.Label.Text = yTitle
	err := draw(p)
	if err != nil {
		return fmt.Errorf("could not draw plot contents: %w", err)
	}
	if err := p.Save(15*vg.Centimeter, 15*vg.Centimeter, path); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// plotterXY provides a plotter.XYs type value based on the given x and y data.
func plotterXY(x, y []float64) plotter.XYs {
	xy := make(plotter.XYs, len(x))
	for i := range x {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	return xy
}
