/*
DESCRIPTION
  meanshift.go provides fixed bandwidth, flat kernel mean-shift clustering of
  match surface candidates.

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

package cluster

import (
	"image"
	"math"
	"sort"
)

// Mean-shift convergence constants.
const (
	convergeTol = 1e-3 // Shift, as a fraction of the bandwidth, below which a seed has converged.
	maxIter     = 300  // Maximum shifts per seed.
)

type vec struct{ x, y float64 }

func (a vec) dist(b vec) float64 { return math.Hypot(a.x-b.x, a.y-b.y) }

// MeanShift clusters pts using mean-shift with a flat kernel of radius
// bandwidth, seeding at every point. It returns a cluster label for each
// point and the number of clusters.
//
// Each seed repeatedly moves to the mean of all points within bandwidth of
// it until it moves less than convergeTol*bandwidth or maxIter is reached.
// Modes are ranked by the number of points within bandwidth of them, then by
// seed index, and a mode lying within bandwidth of a higher ranked mode is
// merged into it. Points are labelled with the nearest surviving mode, the
// lower ranked label winning exact distance ties. Labels are numbered in
// rank order, so label 0 is the best supported cluster.
//
// Cost is O(n^2) per iteration for n points.
func MeanShift(pts []image.Point, bandwidth float64) ([]int, int) {
	if len(pts) == 0 {
		return nil, 0
	}

	data := make([]vec, len(pts))
	for i, p := range pts {
		data[i] = vec{float64(p.X), float64(p.Y)}
	}

	modes := make([]vec, len(data))
	support := make([]int, len(data))
	for i, seed := range data {
		modes[i], support[i] = climb(data, seed, bandwidth)
	}

	order := make([]int, len(modes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return support[order[a]] > support[order[b]] })

	var kept []vec
	for _, i := range order {
		dup := false
		for _, k := range kept {
			if modes[i].dist(k) <= bandwidth {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, modes[i])
		}
	}

	labels := make([]int, len(data))
	members := make([]int, len(kept))
	for i, p := range data {
		best, bestDst := 0, math.Inf(1)
		for k, m := range kept {
			if d := p.dist(m); d < bestDst {
				best, bestDst = k, d
			}
		}
		labels[i] = best
		members[best]++
	}

	// Drop modes that attracted no points, keeping rank order.
	remap := make([]int, len(kept))
	n := 0
	for k, c := range members {
		if c == 0 {
			remap[k] = -1
			continue
		}
		remap[k] = n
		n++
	}
	for i := range labels {
		labels[i] = remap[labels[i]]
	}
	return labels, n
}

// climb shifts seed to its mode and returns the mode together with the
// number of points within bandwidth of it.
func climb(data []vec, seed vec, bandwidth float64) (vec, int) {
	p, n := seed, 0
	for iter := 0; iter < maxIter; iter++ {
		var sum vec
		m := 0
		for _, q := range data {
			if p.dist(q) <= bandwidth {
				sum.x += q.x
				sum.y += q.y
				m++
			}
		}
		if m == 0 {
			break
		}
		n = m
		next := vec{sum.x / float64(m), sum.y / float64(m)}
		moved := next.dist(p)
		p = next
		if moved <= convergeTol*bandwidth {
			break
		}
	}
	return p, n
}
