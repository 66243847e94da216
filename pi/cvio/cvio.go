//go:build !nocv
// +build !nocv

/*
DESCRIPTION
  cvio.go provides an OpenCV backed image loader, preprocessor, pattern
  matcher, warper and writer for Planes.

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

// Package cvio implements image input, output and processing for Planes with
// OpenCV through gocv. Planes hold RGB samples; conversion to and from
// OpenCV's BGR order happens only when reading and writing files.
package cvio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/traysense/pi/match"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/rectify"
)

// Backend performs image operations with OpenCV. The zero value is ready to
// use.
type Backend struct{}

// Load reads the image file at path as RGB and resizes it by scale with
// area interpolation.
func (Backend) Load(path string, scale float64) (raster.Plane, error) {
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return raster.Plane{}, fmt.Errorf("invalid scale factor: %v", scale)
	}
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return raster.Plane{}, fmt.Errorf("could not read image: %s", path)
	}
	defer img.Close()

	if scale != 1 {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(img, &scaled, image.Point{}, scale, scale, gocv.InterpolationArea)
		if scaled.Empty() {
			return raster.Plane{}, fmt.Errorf("scale factor %v reduces %s to nothing", scale, path)
		}
		img, scaled = scaled, img
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
	return fromMat(rgb)
}

// Preprocess converts img to grayscale and binarises it with a Gaussian
// weighted adaptive threshold over blockSize x blockSize neighbourhoods,
// offset by c.
func (Backend) Preprocess(img raster.Plane, blockSize int, c float64) (raster.Plane, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return raster.Plane{}, fmt.Errorf("invalid adaptive threshold block size: %d", blockSize)
	}
	src, err := toMat(img.Gray(), gocv.MatTypeCV8UC1)
	if err != nil {
		return raster.Plane{}, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, blockSize, float32(c))
	return fromMat(dst)
}

// Provider returns the OpenCV pattern matcher.
func (Backend) Provider() match.Provider { return Matcher{} }

// Warp resamples img through h with bilinear interpolation and a constant
// zero border.
func (Backend) Warp(img raster.Plane, h *rectify.Homography) (raster.Plane, error) {
	src, err := toMat(img, floatType(img.Channels()))
	if err != nil {
		return raster.Plane{}, err
	}
	defer src.Close()

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	hm := h.Matrix()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, hm.At(r, c))
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	w, ht := h.Size()
	gocv.WarpPerspective(src, &dst, m, image.Pt(w, ht))
	return fromMat(dst)
}

// Write encodes img to path, choosing the format from the file extension.
func (Backend) Write(path string, img raster.Plane) error {
	m, err := toMat(img, byteType(img.Channels()))
	if err != nil {
		return err
	}
	defer m.Close()
	if img.Channels() == 3 {
		gocv.CvtColor(m, &m, gocv.ColorRGBToBGR)
	}
	if !gocv.IMWrite(path, m) {
		return fmt.Errorf("could not write image: %s", path)
	}
	return nil
}

// Matcher computes match surfaces with OpenCV's normalised correlation
// coefficient method, giving scores in [-1, 1].
type Matcher struct{}

// Match implements match.Provider.
func (Matcher) Match(img, pattern raster.Plane) (*mat.Dense, error) {
	if err := match.Check(img, pattern); err != nil {
		return nil, err
	}
	typ := floatType(img.Channels())
	im, err := toMat(img, typ)
	if err != nil {
		return nil, err
	}
	defer im.Close()
	tp, err := toMat(pattern, typ)
	if err != nil {
		return nil, err
	}
	defer tp.Close()

	res := gocv.NewMat()
	defer res.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(im, tp, &res, gocv.TmCcoeffNormed, mask)

	rows, cols := img.Height()-pattern.Height()+1, img.Width()-pattern.Width()+1
	if res.Rows() != rows || res.Cols() != cols {
		return nil, fmt.Errorf("unexpected match surface size %dx%d, want %dx%d", res.Cols(), res.Rows(), cols, rows)
	}
	data, err := res.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("could not read match surface: %w", err)
	}
	s := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := float64(data[r*cols+c])
			// Flat windows divide by zero.
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			s.Set(r, c, math.Max(-1, math.Min(1, v)))
		}
	}
	return s, nil
}

func floatType(channels int) gocv.MatType {
	if channels == 3 {
		return gocv.MatTypeCV32FC3
	}
	return gocv.MatTypeCV32FC1
}

func byteType(channels int) gocv.MatType {
	if channels == 3 {
		return gocv.MatTypeCV8UC3
	}
	return gocv.MatTypeCV8UC1
}

// toMat copies p into a new Mat of type typ, which must be an 8 bit unsigned
// or 32 bit float type with p's channel count. 8 bit samples are rounded and
// clamped.
func toMat(p raster.Plane, typ gocv.MatType) (gocv.Mat, error) {
	if p.Empty() {
		return gocv.Mat{}, errors.New("cannot convert empty image")
	}
	samples := p.Samples()
	var buf []byte
	switch typ {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3:
		buf = make([]byte, len(samples))
		for i, v := range samples {
			buf[i] = clamp8(v)
		}
	case gocv.MatTypeCV32FC1, gocv.MatTypeCV32FC3:
		buf = make([]byte, 4*len(samples))
		for i, v := range samples {
			binary.NativeEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
		}
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported mat type: %v", typ)
	}
	m, err := gocv.NewMatFromBytes(p.Height(), p.Width(), typ, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("could not create mat: %w", err)
	}
	return m, nil
}

// fromMat copies a 1 or 3 channel Mat of any depth into a Plane.
func fromMat(m gocv.Mat) (raster.Plane, error) {
	ch := m.Channels()
	if ch != 1 && ch != 3 {
		return raster.Plane{}, fmt.Errorf("unsupported channel count: %d", ch)
	}
	f := gocv.NewMat()
	defer f.Close()
	m.ConvertTo(&f, gocv.MatTypeCV32F)

	data, err := f.DataPtrFloat32()
	if err != nil {
		return raster.Plane{}, fmt.Errorf("could not read mat: %w", err)
	}
	pix := make([]float64, len(data))
	for i, v := range data {
		pix[i] = float64(v)
	}
	return raster.New(f.Cols(), f.Rows(), ch, pix)
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
