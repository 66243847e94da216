/*
DESCRIPTION
  detector.go provides Detector, which scores every sensor pattern against
  every cell of a rectified tray image using a pool of workers.

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

// Package sensors identifies which sensor, if any, sits in each cell of a
// tray. Each sensor type has a reference pattern; the single best placement
// of every pattern is found in every cell, and the cell is assigned the
// pattern that scored highest above its threshold.
package sensors

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/traysense/pi/match"
	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/tray"
)

// Pattern is the reference image of a sensor type.
type Pattern struct {
	Name      string
	Image     raster.Plane
	Threshold float64 // Match threshold in [0, 1).
}

// Detector finds sensors in tray images. It holds no per-frame state and is
// safe for concurrent use.
type Detector struct {
	patterns []Pattern
	provider match.Provider
	workers  int
}

// Option is the function signature returned by option functions below for
// use in NewDetector.
type Option func(*Detector) error

// WithWorkers returns an Option that sets the number of cell and pattern
// pairs scored concurrently. The default is the number of CPUs.
func WithWorkers(n int) Option {
	return func(d *Detector) error {
		if n <= 0 {
			return param.Invalid("workers", "must be positive, got %d", n)
		}
		d.workers = n
		return nil
	}
}

// NewDetector returns a Detector matching patterns with p. Pattern indices
// are the sensor types reported by Detect.
func NewDetector(patterns []Pattern, p match.Provider, options ...Option) (*Detector, error) {
	if len(patterns) == 0 {
		return nil, param.Invalid("sensor_detectors", "at least one pattern is required")
	}
	if p == nil {
		return nil, param.Invalid("provider", "must not be nil")
	}
	for i, pat := range patterns {
		if pat.Image.Empty() {
			return nil, param.Invalid(fmt.Sprintf("sensor_detectors[%d].pattern", i), "empty pattern image")
		}
		if math.IsNaN(pat.Threshold) || pat.Threshold < 0 || pat.Threshold >= 1 {
			return nil, param.Invalid(fmt.Sprintf("sensor_detectors[%d].detector.match_threshold", i), "must be in [0, 1), got %v", pat.Threshold)
		}
	}

	d := &Detector{
		patterns: append([]Pattern(nil), patterns...),
		provider: p,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range options {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Patterns returns the detector's patterns in sensor type order.
func (d *Detector) Patterns() []Pattern { return append([]Pattern(nil), d.patterns...) }

// Score matches every pattern against every cell of img, which must be
// rectified to grid. One ScoreGrid is returned per pattern. If ctx is
// cancelled before all cells are scored, no grids are returned.
func (d *Detector) Score(ctx context.Context, img raster.Plane, grid *tray.Grid) ([]*ScoreGrid, error) {
	out := make([]*ScoreGrid, len(d.patterns))
	for k, p := range d.patterns {
		out[k] = NewScoreGrid(p.Name, grid.Rows(), grid.Cols())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for k := range d.patterns {
		for r, c := range grid.All() {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				m, err := d.scoreCell(grid.Cell(img, r, c), d.patterns[k])
				if err != nil {
					return fmt.Errorf("could not score pattern %s in cell (%d, %d): %w", d.patterns[k].Name, r, c, err)
				}
				out[k].Set(r, c, m)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scoreCell returns the best placement of p in cell. A cell smaller than the
// pattern has no match.
func (d *Detector) scoreCell(cell raster.Plane, p Pattern) (Match, error) {
	if cell.Width() < p.Image.Width() || cell.Height() < p.Image.Height() {
		return Match{}, nil
	}
	s, err := d.provider.Match(cell, p.Image)
	if err != nil {
		return Match{}, err
	}
	peak := match.Peak(s)
	if peak.Score <= p.Threshold {
		return Match{}, nil
	}
	return Match{Offset: peak.Pt, Score: peak.Score, Found: true}, nil
}

// Detect scores img against grid and arbitrates the results.
func (d *Detector) Detect(ctx context.Context, img raster.Plane, grid *tray.Grid) (*Arbitrated, error) {
	grids, err := d.Score(ctx, img, grid)
	if err != nil {
		return nil, err
	}
	return Arbitrate(grids)
}
