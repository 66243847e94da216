/*
DESCRIPTION
  ncc.go provides a pure Go zero-mean normalised cross correlation match
  surface provider.

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

package match

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/traysense/pi/raster"
)

// Minimum per-sample variance for a window or pattern to be considered
// textured. Flat windows score 0.
const minVariance = 1e-6

// NCC is a Provider computing the zero-mean normalised cross correlation
// (OpenCV's TM_CCOEFF_NORMED) of a pattern against every placement within an
// image. Scores lie in [-1, 1], 1 being a perfect match. For colour planes
// the correlation and variances are summed over channels before
// normalisation, each channel using its own mean.
type NCC struct{}

// Match implements Provider.
func (NCC) Match(img, pattern raster.Plane) (*mat.Dense, error) {
	if err := Check(img, pattern); err != nil {
		return nil, err
	}

	W, H, C := img.Width(), img.Height(), img.Channels()
	w, h := pattern.Width(), pattern.Height()
	n := float64(w * h)
	rows, cols := H-h+1, W-w+1

	// Zero-mean pattern; sum(T'*I) == sum(T'*I') since sum(T') is zero.
	tz, tVar := zeroMean(pattern)
	if tVar <= n*float64(C)*minVariance {
		return mat.NewDense(rows, cols, nil), nil
	}

	sum, sq := integrals(img)
	stride := (W + 1) * C
	rect := func(t []float64, x, y, ch int) float64 {
		x1, y1 := x+w, y+h
		return t[y1*stride+x1*C+ch] - t[y*stride+x1*C+ch] - t[y1*stride+x*C+ch] + t[y*stride+x*C+ch]
	}

	out := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var wVar float64
			for ch := 0; ch < C; ch++ {
				s := rect(sum, x, y, ch)
				wVar += rect(sq, x, y, ch) - s*s/n
			}
			if wVar <= n*float64(C)*minVariance {
				continue
			}

			var num float64
			for py := 0; py < h; py++ {
				irow := img.Row(y + py)[x*C : (x+w)*C]
				trow := tz[py*w*C : (py+1)*w*C]
				for i, t := range trow {
					num += t * irow[i]
				}
			}

			r := num / math.Sqrt(tVar*wVar)
			out[y*cols+x] = math.Max(-1, math.Min(1, r))
		}
	}
	return mat.NewDense(rows, cols, out), nil
}

// zeroMean returns p's samples with each channel's mean removed, and the sum
// of squares of the result.
func zeroMean(p raster.Plane) ([]float64, float64) {
	C := p.Channels()
	s := p.Samples()
	n := float64(p.Width() * p.Height())

	mean := make([]float64, C)
	for i, v := range s {
		mean[i%C] += v
	}
	for ch := range mean {
		mean[ch] /= n
	}

	var ss float64
	for i := range s {
		s[i] -= mean[i%C]
		ss += s[i] * s[i]
	}
	return s, ss
}

// integrals returns per-channel summed-area tables of img and of its squared
// samples. Both tables have (height+1) x (width+1) entries per channel with a
// zero first row and column.
func integrals(img raster.Plane) (sum, sq []float64) {
	W, H, C := img.Width(), img.Height(), img.Channels()
	stride := (W + 1) * C
	sum = make([]float64, (H+1)*stride)
	sq = make([]float64, (H+1)*stride)

	for y := 0; y < H; y++ {
		row := img.Row(y)
		for ch := 0; ch < C; ch++ {
			var rs, rq float64
			for x := 0; x < W; x++ {
				v := row[x*C+ch]
				rs += v
				rq += v * v
				i := (y+1)*stride + (x+1)*C + ch
				sum[i] = sum[i-stride] + rs
				sq[i] = sq[i-stride] + rq
			}
		}
	}
	return sum, sq
}
