/*
DESCRIPTION
  detect.go provides the cluster based detector which turns a match surface
  into deduplicated detections of a repeated pattern.

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

// Package cluster finds multiple instances of a pattern in an image. Match
// surface locations scoring above a threshold are grouped with mean-shift and
// each group is reduced to its best scoring location.
//
// Clustering is quadratic in the number of candidates, so the threshold must
// be high enough to keep the candidate count small; lowering it trades speed
// for recall.
package cluster

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/traysense/pi/match"
	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/raster"
)

// Detection is the representative location of a cluster of candidates.
type Detection struct {
	Pos    image.Point // Top-left corner of the matched pattern placement.
	Center image.Point // Pos offset by half the pattern size.
	Score  float64
}

// Detector detects pattern instances in match surfaces.
type Detector struct {
	threshold float64
	bandwidth float64
}

// NewDetector returns a Detector keeping candidates scoring strictly above
// threshold and clustering them with the given bandwidth, measured in match
// surface pixels.
func NewDetector(threshold, bandwidth float64) (*Detector, error) {
	if math.IsNaN(threshold) || threshold < -1 || threshold >= 1 {
		return nil, param.Invalid("match_threshold", "must be in [-1, 1), got %v", threshold)
	}
	if math.IsNaN(bandwidth) || math.IsInf(bandwidth, 0) || bandwidth <= 0 {
		return nil, param.Invalid("clustering_bandwidth", "must be positive, got %v", bandwidth)
	}
	return &Detector{threshold: threshold, bandwidth: bandwidth}, nil
}

// Threshold returns the detector's match threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Bandwidth returns the detector's clustering bandwidth.
func (d *Detector) Bandwidth() float64 { return d.bandwidth }

// Detect returns one Detection per cluster of candidates in s, best
// supported cluster first. patternSize is the (width, height) of the matched
// pattern and is used to derive detection centers. A nil slice is returned
// when no location exceeds the threshold; this is not an error.
//
// Within a cluster the candidate with the highest score is chosen. Exact
// ties go to the candidate that comes first in row-major order.
func (d *Detector) Detect(s mat.Matrix, patternSize image.Point) []Detection {
	cands := match.Candidates(s, d.threshold)
	if len(cands) == 0 {
		return nil
	}

	pts := make([]image.Point, len(cands))
	for i, c := range cands {
		pts[i] = c.Pt
	}
	labels, n := MeanShift(pts, d.bandwidth)

	best := make([]int, n)
	for i := range best {
		best[i] = -1
	}
	for i, l := range labels {
		if best[l] == -1 || cands[i].Score > cands[best[l]].Score {
			best[l] = i
		}
	}

	half := patternSize.Div(2)
	out := make([]Detection, n)
	for l, i := range best {
		out[l] = Detection{Pos: cands[i].Pt, Center: cands[i].Pt.Add(half), Score: cands[i].Score}
	}
	return out
}

// DetectImage matches pattern against img with p and returns the detections
// in the resulting surface. It is suitable for locating and counting
// instances of a pattern in an image with no tray structure.
func (d *Detector) DetectImage(p match.Provider, img, pattern raster.Plane) ([]Detection, error) {
	s, err := p.Match(img, pattern)
	if err != nil {
		return nil, fmt.Errorf("could not match pattern: %w", err)
	}
	return d.Detect(s, pattern.Size()), nil
}
