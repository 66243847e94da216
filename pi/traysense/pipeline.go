/*
DESCRIPTION
  pipeline.go provides Pipeline, which runs calibration, rectification and
  sensor detection on tray images according to a configuration.

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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/traysense/pi/cluster"
	"github.com/ausocean/traysense/pi/config"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/rectify"
	"github.com/ausocean/traysense/pi/sensors"
	"github.com/ausocean/traysense/pi/tray"
)

// Result holds everything produced for one tray image.
type Result struct {
	Calibration []cluster.Detection // Calibration points, best first.
	Homography  *rectify.Homography
	Rectified   raster.Plane
	Scores      []*sensors.ScoreGrid // One per sensor type.
	Sensors     *sensors.Arbitrated
}

// Pipeline runs the full detection on tray images. It is built once from a
// configuration and may be run on any number of images.
type Pipeline struct {
	params  *config.Parameters
	grid    *tray.Grid
	backend Backend
	log     logging.Logger

	blockSize   int // Adaptive threshold block size, zero if disabled.
	c           float64
	calibration raster.Plane
	calib       *cluster.Detector
	detector    *sensors.Detector
}

// NewPipeline returns a Pipeline for params, looking its tray up in cat and
// loading every pattern with b. If params ask for preprocessing and b does
// not support it a warning is logged and preprocessing is skipped.
func NewPipeline(params *config.Parameters, cat *config.Catalog, b Backend, log logging.Logger) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{params: params, backend: b, log: log}

	var err error
	p.grid, err = cat.Lookup(params.Tray.Name, params.Tray.Scale)
	if err != nil {
		return nil, fmt.Errorf("could not look up tray: %w", err)
	}
	log.Debug("tray loaded", "tray", p.grid.String())

	cal := params.Calibration
	p.calib, err = cluster.NewDetector(cal.Detector.MatchThreshold, cal.Detector.ClusteringBandwidth)
	if err != nil {
		return nil, fmt.Errorf("calibration_detector: %w", err)
	}
	p.calibration, err = b.Load(cal.Pattern.Path, cal.Pattern.Scale)
	if err != nil {
		return nil, fmt.Errorf("could not load calibration pattern: %w", err)
	}
	if pp := cal.Preprocessing; pp != nil {
		p.blockSize, p.c = pp.BlockSize(), pp.C
		p.calibration, err = p.preprocess(p.calibration)
		if err != nil {
			return nil, fmt.Errorf("could not preprocess calibration pattern: %w", err)
		}
	}

	pats := make([]sensors.Pattern, len(params.Sensors))
	for i, s := range params.Sensors {
		img, err := b.Load(s.Pattern.Path, s.Pattern.Scale)
		if err != nil {
			return nil, fmt.Errorf("could not load %s pattern: %w", s.Name, err)
		}
		pats[i] = sensors.Pattern{Name: s.Name, Image: img, Threshold: s.Detector.MatchThreshold}
	}
	var opts []sensors.Option
	if params.Workers > 0 {
		opts = append(opts, sensors.WithWorkers(params.Workers))
	}
	p.detector, err = sensors.NewDetector(pats, b.Provider(), opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// preprocess applies adaptive thresholding if it is enabled. If the backend
// does not support it, it is disabled for the life of the Pipeline.
func (p *Pipeline) preprocess(img raster.Plane) (raster.Plane, error) {
	if p.blockSize == 0 {
		return img, nil
	}
	out, err := p.backend.Preprocess(img, p.blockSize, p.c)
	if errors.Is(err, errors.ErrUnsupported) {
		p.log.Warning("preprocessing not supported by backend, skipping")
		p.blockSize = 0
		return img, nil
	}
	return out, err
}

// Grid returns the tray grid.
func (p *Pipeline) Grid() *tray.Grid { return p.grid }

// Patterns returns the sensor pattern names in sensor type order.
func (p *Pipeline) Patterns() []string {
	names := make([]string, len(p.params.Sensors))
	for i, s := range p.params.Sensors {
		names[i] = s.Name
	}
	return names
}

// LoadImage loads the tray image named in the configuration.
func (p *Pipeline) LoadImage() (raster.Plane, error) {
	img, err := p.backend.Load(p.params.Image.Path, p.params.Image.Scale)
	if err != nil {
		return raster.Plane{}, fmt.Errorf("could not load tray image: %w", err)
	}
	return img, nil
}

// Run finds the calibration points in img, rectifies it onto the tray and
// detects the sensor in every cell. If calibration fails the error is
// returned with no result. If ctx is cancelled during sensor detection
// ctx's error is returned with no result.
func (p *Pipeline) Run(ctx context.Context, img raster.Plane) (*Result, error) {
	timer := time.Now()
	cal, err := p.preprocess(img)
	if err != nil {
		return nil, fmt.Errorf("could not preprocess image: %w", err)
	}
	dets, err := p.calib.DetectImage(p.backend.Provider(), cal, p.calibration)
	if err != nil {
		return nil, fmt.Errorf("could not detect calibration points: %w", err)
	}
	if len(dets) == 0 {
		p.log.Warning("no calibration point candidates found", "threshold", p.calib.Threshold())
	}
	p.log.Debug("calibration points detected", "count", len(dets), "duration (sec)", time.Since(timer).Seconds())
	for i, d := range dets {
		p.log.Debug("calibration point", "index", i, "center", d.Center.String(), "score", d.Score)
	}

	timer = time.Now()
	w, h := p.grid.Size()
	src, err := rectify.AssignCorners(rectify.Centers(dets), float64(img.Width()), float64(img.Height()))
	if err != nil {
		p.log.Warning("calibration failed", "error", err)
		return nil, fmt.Errorf("could not assign tray corners: %w", err)
	}
	hm, err := rectify.NewHomography(src, w, h)
	if err != nil {
		p.log.Warning("calibration failed", "error", err)
		return nil, fmt.Errorf("could not estimate homography: %w", err)
	}
	rect, err := p.backend.Warp(img, hm)
	if err != nil {
		return nil, fmt.Errorf("could not rectify image: %w", err)
	}
	p.log.Debug("image rectified", "width", w, "height", h, "duration (sec)", time.Since(timer).Seconds())

	timer = time.Now()
	scores, err := p.detector.Score(ctx, rect, p.grid)
	if err != nil {
		return nil, fmt.Errorf("could not score cells: %w", err)
	}
	arb, err := sensors.Arbitrate(scores)
	if err != nil {
		return nil, fmt.Errorf("could not arbitrate cells: %w", err)
	}
	p.log.Debug("sensors detected", "duration (sec)", time.Since(timer).Seconds())

	counts, empty := arb.Counts()
	for i, name := range arb.Patterns() {
		p.log.Info("sensor count", "sensor", name, "cells", counts[i])
	}
	p.log.Info("empty cells", "cells", empty)

	return &Result{
		Calibration: dets,
		Homography:  hm,
		Rectified:   rect,
		Scores:      scores,
		Sensors:     arb,
	}, nil
}

// WriteRectified encodes a rectified image to path.
func (p *Pipeline) WriteRectified(path string, img raster.Plane) error {
	return p.backend.Write(path, img)
}
