/*
DESCRIPTION
  main_test.go provides testing of a complete traysense run on a synthetic
  tray image.

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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/synth"
	"github.com/ausocean/traysense/pi/traysense"
)

const params = `image: {path: tray.png, scale: 1}
tray: {name: small, scale: 1}
calibration_detector:
  pattern: {path: calib.png, scale: 1}
  detector: {match_threshold: 0.8, clustering_bandwidth: 10}
sensor_detectors:
  - name: temp
    pattern: {path: temp.png, scale: 1}
    detector: {match_threshold: 0.8}
`

const trays = `- name: small
  tray: {rows: 2, cols: 2, width: 80, height: 80}
  cell: {width: 20, height: 20}
`

func TestRun(t *testing.T) {
	dir := t.TempDir()

	// Fiducials centered on the corners of the 80x80 tray, offset by 20.
	calib := synth.Pattern(16, 16, 2, 201)
	temp := synth.Pattern(8, 8, 1, 202)
	c := synth.NewCanvas(120, 120, 100)
	for _, f := range []image.Point{{20, 20}, {20, 100}, {100, 100}, {100, 20}} {
		c.Paste(calib, f.Sub(image.Pt(8, 8)))
	}
	c.Paste(temp, image.Pt(63, 42)) // Cell (0, 1) at rectified (43, 22).

	for name, p := range map[string]raster.Plane{"tray.png": c.Plane(), "calib.png": calib, "temp.png": temp} {
		if err := raster.Save(filepath.Join(dir, name), p); err != nil {
			t.Fatalf("could not write %s: %v", name, err)
		}
	}
	paramsPath := filepath.Join(dir, "parameters.yml")
	traysPath := filepath.Join(dir, "trays.yml")
	if err := os.WriteFile(paramsPath, []byte(params), 0644); err != nil {
		t.Fatalf("could not write parameters: %v", err)
	}
	if err := os.WriteFile(traysPath, []byte(trays), 0644); err != nil {
		t.Fatalf("could not write trays: %v", err)
	}

	var out bytes.Buffer
	outPath := filepath.Join(dir, "rectified.png")
	plotDir := filepath.Join(dir, "plots")
	err := run(context.Background(), paramsPath, traysPath, outPath, plotDir, (*logging.TestLogger)(t), &out)
	if err != nil {
		t.Fatalf("could not run: %v", err)
	}

	var rep traysense.Report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("could not decode report: %v", err)
	}
	if rep.Tray != "small" || rep.Rows != 2 || rep.Cols != 2 {
		t.Errorf("unexpected report header: %+v", rep)
	}
	for r, row := range rep.Cells {
		for col, cell := range row {
			want := "" // Empty.
			if r == 0 && col == 1 {
				want = "temp"
			}
			if cell.Sensor != want {
				t.Errorf("unexpected sensor in cell (%d, %d). Got: %q, Want: %q", r, col, cell.Sensor, want)
			}
		}
	}
	if got := rep.Cells[0][1]; got.X != 43 || got.Y != 22 {
		t.Errorf("unexpected sensor position. Got: (%d, %d), Want: (43, 22)", got.X, got.Y)
	}

	for _, path := range []string{outPath, filepath.Join(plotDir, "temp.png"), filepath.Join(plotDir, "calibration.png")} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected output file: %v", err)
		}
	}

	if err := run(context.Background(), filepath.Join(dir, "missing.yml"), traysPath, "", "", (*logging.TestLogger)(t), &out); err == nil {
		t.Error("expected error for missing parameters file")
	}
}
