/*
DESCRIPTION
  traysense_test.go provides end to end testing of the tray sensor locating
  pipeline on synthetic tray images.

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
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/traysense/pi/config"
	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/rectify"
	"github.com/ausocean/traysense/pi/sensors"
	"github.com/ausocean/traysense/pi/synth"
)

// Scene geometry. Fiducial centers sit on the corners of a 180x180 tray
// whose 7x7 cells of 20 pixels leave a 20 pixel margin, so rectification is
// a translation by the fiducial offset.
const (
	sceneSize = 220
	trayOff   = 20
	fidSize   = 16
)

var (
	fiducials = []image.Point{{trayOff, trayOff}, {trayOff, 200}, {200, 200}, {200, trayOff}}
	tempAt    = image.Pt(44, 46)   // Cell (0, 0), offset (4, 6).
	phAt      = image.Pt(125, 103) // Cell (3, 4), offset (5, 3).
)

const paramsYAML = `image: {path: tray.png, scale: 1}
tray: {name: test-7x7, scale: 1}
calibration_detector:
  pattern: {path: calib.png, scale: 1}
  preprocessing: {block_radius: 5, c: 7}
  detector: {match_threshold: 0.8, clustering_bandwidth: 10}
sensor_detectors:
  - name: temp
    pattern: {path: temp.png, scale: 1}
    detector: {match_threshold: 0.8}
  - name: ph
    pattern: {path: ph.png, scale: 1}
    detector: {match_threshold: 0.8}
workers: 2
`

const traysYAML = `- name: test-7x7
  tray: {rows: 7, cols: 7, width: 180, height: 180}
  cell: {width: 20, height: 20}
`

type scene struct {
	calib, temp, ph raster.Plane
	img             raster.Plane
}

// newScene builds a tray image holding nFid fiducials and the two sensors.
func newScene(nFid int) scene {
	s := scene{
		calib: synth.Pattern(fidSize, fidSize, 2, 101),
		temp:  synth.Pattern(8, 8, 1, 102),
		ph:    synth.Pattern(8, 8, 1, 103),
	}
	c := synth.NewCanvas(sceneSize, sceneSize, 100)
	for _, f := range fiducials[:nFid] {
		c.Paste(s.calib, f.Sub(image.Pt(fidSize/2, fidSize/2)))
	}
	c.Paste(s.temp, tempAt)
	c.Paste(s.ph, phAt)
	s.img = c.Plane()
	return s
}

// writeScene writes the scene images and configuration to a temporary
// directory and returns the parameters and trays file paths.
func writeScene(t *testing.T, s scene) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for name, p := range map[string]raster.Plane{
		"tray.png":  s.img,
		"calib.png": s.calib,
		"temp.png":  s.temp,
		"ph.png":    s.ph,
	} {
		if err := raster.Save(filepath.Join(dir, name), p); err != nil {
			t.Fatalf("could not write %s: %v", name, err)
		}
	}
	params := filepath.Join(dir, "parameters.yml")
	trays := filepath.Join(dir, "trays.yml")
	for path, body := range map[string]string{params: paramsYAML, trays: traysYAML} {
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("could not write %s: %v", path, err)
		}
	}
	return params, trays
}

func newPipeline(t *testing.T, s scene) *Pipeline {
	t.Helper()
	paramsPath, traysPath := writeScene(t, s)
	params, err := config.LoadParameters(paramsPath)
	if err != nil {
		t.Fatalf("could not load parameters: %v", err)
	}
	p, err := NewPipeline(params, config.NewCatalog(traysPath), Native{}, (*logging.TestLogger)(t))
	if err != nil {
		t.Fatalf("could not create pipeline: %v", err)
	}
	return p
}

func TestPipelineRun(t *testing.T) {
	p := newPipeline(t, newScene(4))
	img, err := p.LoadImage()
	if err != nil {
		t.Fatalf("could not load image: %v", err)
	}

	res, err := p.Run(context.Background(), img)
	if err != nil {
		t.Fatalf("could not run pipeline: %v", err)
	}
	if len(res.Calibration) != 4 {
		t.Fatalf("unexpected calibration point count. Got: %d, Want: 4", len(res.Calibration))
	}
	if w, h := res.Homography.Size(); w != 180 || h != 180 {
		t.Errorf("unexpected rectified size. Got: %dx%d, Want: 180x180", w, h)
	}

	want := make([][]int, 7)
	for r := range want {
		want[r] = []int{sensors.None, sensors.None, sensors.None, sensors.None, sensors.None, sensors.None, sensors.None}
	}
	want[0][0] = 0
	want[3][4] = 1
	if diff := cmp.Diff(want, res.Sensors.Labels()); diff != "" {
		t.Errorf("unexpected sensor labels (-want +got):\n%s", diff)
	}
	if c := res.Sensors.At(0, 0); c.Offset != image.Pt(4, 6) || c.Score < 0.99 {
		t.Errorf("unexpected temp cell: %+v", c)
	}
	if c := res.Sensors.At(3, 4); c.Offset != image.Pt(5, 3) || c.Score < 0.99 {
		t.Errorf("unexpected ph cell: %+v", c)
	}
	if c := res.Sensors.At(6, 6); c != (sensors.Cell{Type: sensors.None}) {
		t.Errorf("unexpected empty cell: %+v", c)
	}

	rep := NewReport(p.Grid(), res.Sensors)
	if got := rep.Cells[0][0]; got.Sensor != "temp" || got.X != 24 || got.Y != 26 {
		t.Errorf("unexpected report cell: %+v", got)
	}
	if diff := cmp.Diff(map[string]int{"temp": 1, "ph": 1}, rep.Counts); diff != "" {
		t.Errorf("unexpected report counts (-want +got):\n%s", diff)
	}
	if rep.Empty != 47 {
		t.Errorf("unexpected empty count. Got: %d, Want: 47", rep.Empty)
	}

	out := filepath.Join(t.TempDir(), "rectified.png")
	if err := p.WriteRectified(out, res.Rectified); err != nil {
		t.Errorf("could not write rectified image: %v", err)
	}
}

func TestPipelineCalibrationFailed(t *testing.T) {
	p := newPipeline(t, newScene(3))
	img, err := p.LoadImage()
	if err != nil {
		t.Fatalf("could not load image: %v", err)
	}

	res, err := p.Run(context.Background(), img)
	var ie *rectify.InsufficientPointsError
	if !errors.As(err, &ie) || res != nil {
		t.Fatalf("expected InsufficientPointsError and no result, got: %v, %v", res, err)
	}
	if ie.Count != 3 {
		t.Errorf("unexpected point count. Got: %d, Want: 3", ie.Count)
	}
}

func TestPipelineCancelled(t *testing.T) {
	p := newPipeline(t, newScene(4))
	img, err := p.LoadImage()
	if err != nil {
		t.Fatalf("could not load image: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res, err := p.Run(ctx, img); !errors.Is(err, context.Canceled) || res != nil {
		t.Errorf("expected context.Canceled and no result, got: %v, %v", res, err)
	}
}

func TestNewPipelineUnknownTray(t *testing.T) {
	paramsPath, traysPath := writeScene(t, newScene(4))
	params, err := config.LoadParameters(paramsPath)
	if err != nil {
		t.Fatalf("could not load parameters: %v", err)
	}
	params.Tray.Name = "missing"
	_, err = NewPipeline(params, config.NewCatalog(traysPath), Native{}, (*logging.TestLogger)(t))
	var pe *param.Error
	if !errors.As(err, &pe) || pe.Name != "tray.name" {
		t.Errorf("expected unknown tray error, got: %v", err)
	}
}

func TestEntryPoints(t *testing.T) {
	s := newScene(4)

	dets, err := DetectCalibrationPoints(s.img, s.calib, 0.8, 10)
	if err != nil {
		t.Fatalf("could not detect calibration points: %v", err)
	}
	if len(dets) != 4 {
		t.Fatalf("unexpected detection count. Got: %d, Want: 4", len(dets))
	}
	for _, d := range dets {
		found := false
		for _, f := range fiducials {
			if diff := d.Center.Sub(f); diff.X*diff.X+diff.Y*diff.Y <= 1 {
				found = true
			}
		}
		if !found {
			t.Errorf("detection %v not within 1 pixel of a fiducial", d.Center)
		}
	}

	rect, err := Rectify(s.img, dets, image.Pt(180, 180))
	if err != nil {
		t.Fatalf("could not rectify: %v", err)
	}
	if rect.Size() != image.Pt(180, 180) {
		t.Errorf("unexpected rectified size: %v", rect.Size())
	}

	grid, err := BuildTrayGrid(7, 7, 180, 180, 20, 20, 1)
	if err != nil {
		t.Fatalf("could not build grid: %v", err)
	}

	arb, err := DetectSensors(context.Background(), rect, grid, []raster.Plane{s.temp, s.ph}, []float64{0.8, 0.8})
	if err != nil {
		t.Fatalf("could not detect sensors: %v", err)
	}
	if c := arb.At(0, 0); c.Type != 0 {
		t.Errorf("unexpected sensor at (0, 0): %+v", c)
	}
	if c := arb.At(3, 4); c.Type != 1 {
		t.Errorf("unexpected sensor at (3, 4): %+v", c)
	}
	if counts, empty := arb.Counts(); empty != 47 || counts[0] != 1 || counts[1] != 1 {
		t.Errorf("unexpected counts %v with %d empty", counts, empty)
	}

	var pe *param.Error
	if _, err := DetectSensors(context.Background(), rect, grid, []raster.Plane{s.temp}, nil); !errors.As(err, &pe) {
		t.Errorf("expected param error for missing thresholds, got: %v", err)
	}
	if _, err := Rectify(s.img, dets[:2], image.Pt(180, 180)); err == nil {
		t.Error("expected error rectifying with two detections")
	}
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()
	g := sensors.NewScoreGrid("temp", 3, 4)
	g.Set(1, 2, sensors.Match{Score: 0.9, Found: true})
	if err := PlotScores(dir, g); err != nil {
		t.Fatalf("could not plot scores: %v", err)
	}

	s := newScene(4)
	dets, err := DetectCalibrationPoints(s.img, s.calib, 0.8, 10)
	if err != nil {
		t.Fatalf("could not detect calibration points: %v", err)
	}
	if err := PlotCalibration(dir, dets, s.img.Size()); err != nil {
		t.Fatalf("could not plot calibration points: %v", err)
	}

	for _, name := range []string{"temp.png", "calibration.png"} {
		if fi, err := os.Stat(filepath.Join(dir, name)); err != nil || fi.Size() == 0 {
			t.Errorf("expected non-empty plot %s, got: %v", name, err)
		}
	}
}
