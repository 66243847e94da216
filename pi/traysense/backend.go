/*
DESCRIPTION
  backend.go provides the Backend interface through which a Pipeline reads,
  processes and writes images, and a pure Go implementation of it.

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
	"errors"

	"github.com/ausocean/traysense/pi/match"
	"github.com/ausocean/traysense/pi/raster"
	"github.com/ausocean/traysense/pi/rectify"
)

// Backend performs the image operations of a Pipeline. Load must return RGB
// planes.
type Backend interface {
	// Load reads the image at path and scales it by scale.
	Load(path string, scale float64) (raster.Plane, error)

	// Preprocess binarises img with an adaptive threshold. Backends without
	// support return an error wrapping errors.ErrUnsupported.
	Preprocess(img raster.Plane, blockSize int, c float64) (raster.Plane, error)

	// Provider returns the pattern matcher.
	Provider() match.Provider

	// Warp resamples img through h.
	Warp(img raster.Plane, h *rectify.Homography) (raster.Plane, error)

	// Write encodes img to path.
	Write(path string, img raster.Plane) error
}

// Native is a Backend implemented in pure Go.
type Native struct{}

// Load implements Backend.
func (Native) Load(path string, scale float64) (raster.Plane, error) {
	p, err := raster.Load(path, scale)
	if err != nil {
		return raster.Plane{}, err
	}
	return p.RGB(), nil
}

// Preprocess implements Backend. Adaptive thresholding is not supported.
func (Native) Preprocess(img raster.Plane, blockSize int, c float64) (raster.Plane, error) {
	return raster.Plane{}, errors.ErrUnsupported
}

// Provider implements Backend.
func (Native) Provider() match.Provider { return match.NCC{} }

// Warp implements Backend.
func (Native) Warp(img raster.Plane, h *rectify.Homography) (raster.Plane, error) {
	return h.Warp(img), nil
}

// Write implements Backend.
func (Native) Write(path string, img raster.Plane) error {
	return raster.Save(path, img)
}
