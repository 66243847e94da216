//go:build !nocv
// +build !nocv

/*
DESCRIPTION
  cvio_test.go provides testing for the OpenCV backend. OpenCV must be
  installed to run these tests.

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

package cvio

import (
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocv.io/x/gocv"

	"github.com/ausocean/traysense/pi/match"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/rectify"
	"github.com/ausocean/traysense/pi/synth"
)

func TestMatConversion(t *testing.T) {
	p, err := raster.New(3, 2, 3, []float64{
		0, 10, 20, 30, 40, 50, 60, 70, 80,
		90, 100, 110, 120, 130, 140, 250, 251, 252,
	})
	if err != nil {
		t.Fatalf("could not create plane: %v", err)
	}

	for _, typ := range []gocv.MatType{gocv.MatTypeCV8UC3, gocv.MatTypeCV32FC3} {
		m, err := toMat(p, typ)
		if err != nil {
			t.Fatalf("could not convert to mat type %v: %v", typ, err)
		}
		got, err := fromMat(m)
		m.Close()
		if err != nil {
			t.Fatalf("could not convert from mat type %v: %v", typ, err)
		}
		if diff := cmp.Diff(p.Samples(), got.Samples()); diff != "" {
			t.Errorf("round trip through mat type %v differs (-want +got):\n%s", typ, diff)
		}
	}
}

func TestMatcherAgreesWithNCC(t *testing.T) {
	pat := synth.Pattern(12, 10, 2, 1)
	canvas := synth.NewCanvas(60, 50, 0)
	canvas.Paste(synth.Pattern(60, 50, 1, 2), image.Pt(0, 0))
	at := image.Pt(31, 17)
	canvas.Paste(pat, at)
	img := canvas.Plane()

	want, err := match.NCC{}.Match(img, pat)
	if err != nil {
		t.Fatalf("could not match natively: %v", err)
	}
	got, err := Matcher{}.Match(img, pat)
	if err != nil {
		t.Fatalf("could not match with OpenCV: %v", err)
	}

	rows, cols := want.Dims()
	if gr, gc := got.Dims(); gr != rows || gc != cols {
		t.Fatalf("unexpected surface shape. Got: %dx%d, Want: %dx%d", gr, gc, rows, cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if d := math.Abs(got.At(r, c) - want.At(r, c)); d > 1e-3 {
				t.Fatalf("surfaces differ at (%d, %d) by %v", c, r, d)
			}
		}
	}
	if p := match.Peak(got); p.Pt != at {
		t.Errorf("unexpected peak. Got: %v, Want: %v", p.Pt, at)
	}
}

func TestPreprocess(t *testing.T) {
	img := synth.Pattern(40, 30, 4, 5)
	out, err := Backend{}.Preprocess(img, 11, 7)
	if err != nil {
		t.Fatalf("could not preprocess: %v", err)
	}
	if out.Channels() != 1 || out.Size() != img.Size() {
		t.Fatalf("unexpected output shape %v with %d channels", out.Size(), out.Channels())
	}
	for _, v := range out.Samples() {
		if v != 0 && v != 255 {
			t.Fatalf("expected binary output, got sample %v", v)
		}
	}

	if _, err := (Backend{}).Preprocess(img, 4, 7); err == nil {
		t.Error("expected error for even block size")
	}
}

func TestWarpMatchesNative(t *testing.T) {
	img := synth.Pattern(40, 30, 5, 9)
	h, err := rectify.NewHomography(rectify.Quad(40, 30), 80, 60)
	if err != nil {
		t.Fatalf("could not create homography: %v", err)
	}
	got, err := Backend{}.Warp(img, h)
	if err != nil {
		t.Fatalf("could not warp: %v", err)
	}
	if got.Width() != 80 || got.Height() != 60 {
		t.Fatalf("unexpected output size %dx%d", got.Width(), got.Height())
	}

	// Away from block edges both resamplers reproduce the source exactly.
	want := h.Warp(img)
	for _, pt := range []image.Point{{4, 4}, {24, 14}, {64, 44}} {
		if g, w := got.At(pt.X, pt.Y, 0), want.At(pt.X, pt.Y, 0); math.Abs(g-w) > 1 {
			t.Errorf("sample at %v differs. Got: %v, Want: %v", pt, g, w)
		}
	}
}

func TestWriteLoad(t *testing.T) {
	canvas := synth.NewCanvas(40, 20, 30)
	canvas.Paste(synth.NewCanvas(10, 10, 220).Plane(), image.Pt(20, 5))
	img := canvas.Plane()

	path := filepath.Join(t.TempDir(), "out.png")
	if err := (Backend{}).Write(path, img); err != nil {
		t.Fatalf("could not write image: %v", err)
	}
	got, err := Backend{}.Load(path, 1)
	if err != nil {
		t.Fatalf("could not load image: %v", err)
	}
	if got.Channels() != 3 || got.Size() != img.Size() {
		t.Fatalf("unexpected loaded shape %v with %d channels", got.Size(), got.Channels())
	}
	if v := got.At(25, 10, 1); v != 220 {
		t.Errorf("unexpected sample. Got: %v, Want: 220", v)
	}

	half, err := Backend{}.Load(path, 0.5)
	if err != nil {
		t.Fatalf("could not load scaled image: %v", err)
	}
	if half.Width() != 20 || half.Height() != 10 {
		t.Errorf("unexpected scaled size %dx%d", half.Width(), half.Height())
	}

	if _, err := (Backend{}).Load(filepath.Join(t.TempDir(), "missing.png"), 1); err == nil {
		t.Error("expected error for missing file")
	}
}
