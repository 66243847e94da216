/*
DESCRIPTION
  homography.go provides estimation and application of the planar
  perspective transform used to rectify tray images.

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

package rectify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/traysense/pi/cluster"
	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/raster"
)

// Degeneracy tolerances.
const (
	minArea = 1e-6 // Minimum triangle area, relative to the squared extent of the points.
	minDet  = 1e-9 // Minimum absolute determinant of the normalised matrix.
)

// Homography is a 3x3 projective transform onto a target image of fixed
// size. It is immutable once built.
type Homography struct {
	m, inv        [9]float64
	width, height int
}

// NewHomography returns the transform mapping src, in corner order, onto the
// corners of a width x height target image. ErrDegenerate is returned if any
// three source points are collinear or coincident, or if the resulting
// matrix is not invertible.
func NewHomography(src [4]Point, width, height int) (*Homography, error) {
	if width <= 0 {
		return nil, param.Invalid("width", "must be positive, got %d", width)
	}
	if height <= 0 {
		return nil, param.Invalid("height", "must be positive, got %d", height)
	}
	extent, err := checkQuad(src)
	if err != nil {
		return nil, err
	}

	// Solve in normalised coordinates, both quads scaled to roughly unit
	// size, with h33 fixed at 1.
	sn := 1 / extent
	dn := 1 / math.Max(float64(width), float64(height))
	dst := Quad(float64(width), float64(height))
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range src {
		x, y := src[i].X*sn, src[i].Y*sn
		u, v := dst[i].X*dn, dst[i].Y*dn
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 8; i++ {
		hn.Set(i/3, i%3, h.AtVec(i))
	}
	hn.Set(2, 2, 1)
	if d := mat.Det(hn); math.IsNaN(d) || math.Abs(d) < minDet {
		return nil, fmt.Errorf("%w: determinant %v", ErrDegenerate, d)
	}

	// Undo the normalisation: H = D^-1 * Hn * S.
	var m mat.Dense
	m.Product(
		mat.NewDiagDense(3, []float64{1 / dn, 1 / dn, 1}),
		hn,
		mat.NewDiagDense(3, []float64{sn, sn, 1}),
	)
	var inv mat.Dense
	if err := inv.Inverse(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	hm := &Homography{width: width, height: height}
	for i := 0; i < 9; i++ {
		hm.m[i] = m.At(i/3, i%3)
		hm.inv[i] = inv.At(i/3, i%3)
	}
	return hm, nil
}

// checkQuad returns ErrDegenerate if any three of q are (nearly) collinear,
// otherwise it returns the largest side of q's bounding box.
func checkQuad(q [4]Point) (float64, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return 0, fmt.Errorf("%w: non-finite point %v", ErrDegenerate, p)
		}
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	extent := math.Max(maxX-minX, maxY-minY)
	if extent == 0 {
		return 0, fmt.Errorf("%w: all points coincide", ErrDegenerate)
	}
	tol := minArea * extent * extent

	for i := 0; i < 4; i++ {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		area := math.Abs((b.X-a.X)*(c.Y-a.Y)-(b.Y-a.Y)*(c.X-a.X)) / 2
		if area <= tol {
			return 0, fmt.Errorf("%w: points %v, %v, %v are collinear", ErrDegenerate, a, b, c)
		}
	}
	return extent, nil
}

// Size returns the target image width and height.
func (h *Homography) Size() (width, height int) { return h.width, h.height }

// Matrix returns a copy of the 3x3 transform matrix.
func (h *Homography) Matrix() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h.m[:])
	return mat.NewDense(3, 3, data)
}

// Points maps pts through the transform. Points on the line at infinity map
// to non-finite coordinates.
func (h *Homography) Points(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = project(&h.m, p.X, p.Y)
	}
	return out
}

func project(m *[9]float64, x, y float64) Point {
	w := m[6]*x + m[7]*y + m[8]
	return Point{
		X: (m[0]*x + m[1]*y + m[2]) / w,
		Y: (m[3]*x + m[4]*y + m[5]) / w,
	}
}

// Warp resamples img into the target image. Each target pixel is mapped back
// into img through the inverse transform and sampled bilinearly; samples
// falling outside img read as zero.
func (h *Homography) Warp(img raster.Plane) raster.Plane {
	C := img.Channels()
	pix := make([]float64, h.width*h.height*C)
	for y := 0; y < h.height; y++ {
		for x := 0; x < h.width; x++ {
			s := project(&h.inv, float64(x), float64(y))
			if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsInf(s.X, 0) || math.IsInf(s.Y, 0) {
				continue
			}
			i := (y*h.width + x) * C
			bilinear(img, s.X, s.Y, pix[i:i+C])
		}
	}
	out, err := raster.New(h.width, h.height, C, pix)
	if err != nil {
		panic(fmt.Sprintf("unexpected warp output error: %v", err)) // Sizes are validated on construction.
	}
	return out
}

// bilinear writes the interpolated samples of img at (fx, fy) to dst.
func bilinear(img raster.Plane, fx, fy float64, dst []float64) {
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	if x0 < -1 || y0 < -1 || x0 >= img.Width() || y0 >= img.Height() {
		return
	}
	ax, ay := fx-float64(x0), fy-float64(y0)
	weights := [4]float64{(1 - ax) * (1 - ay), ax * (1 - ay), (1 - ax) * ay, ax * ay}
	offs := [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

	for k, o := range offs {
		x, y := x0+o[0], y0+o[1]
		if weights[k] == 0 || x < 0 || y < 0 || x >= img.Width() || y >= img.Height() {
			continue
		}
		for ch := range dst {
			dst[ch] += weights[k] * img.At(x, y, ch)
		}
	}
}

// Rectify assigns the first four detections to the corners of img, estimates
// the homography onto a width x height image and warps img with it.
func Rectify(img raster.Plane, dets []cluster.Detection, width, height int) (raster.Plane, *Homography, error) {
	src, err := AssignCorners(Centers(dets), float64(img.Width()), float64(img.Height()))
	if err != nil {
		return raster.Plane{}, nil, err
	}
	h, err := NewHomography(src, width, height)
	if err != nil {
		return raster.Plane{}, nil, err
	}
	return h.Warp(img), h, nil
}
