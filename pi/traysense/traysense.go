/*
DESCRIPTION
  traysense.go provides the entry points of the tray sensor locating
  pipeline for callers that manage their own images and trays.

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

// Package traysense locates sensors placed in a gridded tray from a single
// camera image. Four calibration fiducials are found by clustering pattern
// matches, the view is rectified onto the tray with a homography, and each
// tray cell is matched against every sensor pattern to decide which sensor,
// if any, it holds.
//
// The functions in this file run single stages with native pattern
// matching. Pipeline runs every stage from a configuration.
package traysense

import (
	"context"
	"fmt"
	"image"

	"github.com/ausocean/traysense/pi/cluster"
	"github.com/ausocean/traysense/pi/match"
	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/rectify"
	"github.com/ausocean/traysense/pi/sensors"
	"github.com/ausocean/traysense/pi/tray"
)

// DetectCalibrationPoints returns the clustered matches of pattern in img
// scoring above threshold. Matches within bandwidth pixels of each other are
// treated as the same point. No matches is not an error.
func DetectCalibrationPoints(img, pattern raster.Plane, threshold, bandwidth float64) ([]cluster.Detection, error) {
	d, err := cluster.NewDetector(threshold, bandwidth)
	if err != nil {
		return nil, err
	}
	return d.DetectImage(match.NCC{}, img, pattern)
}

// Rectify maps img onto an image of the given size (width, height) using the
// first four detections as the tray corners.
func Rectify(img raster.Plane, dets []cluster.Detection, size image.Point) (raster.Plane, error) {
	out, _, err := rectify.Rectify(img, dets, size.X, size.Y)
	return out, err
}

// BuildTrayGrid returns the grid of a tray with the given cell counts and
// dimensions, all lengths multiplied by scale.
func BuildTrayGrid(rows, cols int, width, height, cellWidth, cellHeight, scale float64) (*tray.Grid, error) {
	return tray.New(tray.Spec{
		Rows:       rows,
		Cols:       cols,
		Width:      width,
		Height:     height,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
	}, scale)
}

// DetectSensors finds, for each cell of grid in the rectified image img,
// which of patterns scores highest above its threshold. thresholds[i]
// applies to patterns[i] and the index of a pattern is its sensor type.
func DetectSensors(ctx context.Context, img raster.Plane, grid *tray.Grid, patterns []raster.Plane, thresholds []float64) (*sensors.Arbitrated, error) {
	if len(patterns) != len(thresholds) {
		return nil, param.Invalid("thresholds", "have %d for %d patterns", len(thresholds), len(patterns))
	}
	pats := make([]sensors.Pattern, len(patterns))
	for i := range patterns {
		pats[i] = sensors.Pattern{Name: fmt.Sprintf("sensor%d", i), Image: patterns[i], Threshold: thresholds[i]}
	}
	d, err := sensors.NewDetector(pats, match.NCC{})
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, img, grid)
}
