//go:build nocv
// +build nocv

/*
DESCRIPTION
  nocv.go provides the pure Go image backend for use when OpenCV is not
  available. Adaptive threshold preprocessing is not supported and is
  skipped with a warning.

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

import "github.com/ausocean/traysense/pi/traysense"

const backendName = "native"

// newBackend returns the pure Go backend.
// To see the OpenCV version of this function, consult cv.go.
func newBackend() traysense.Backend { return traysense.Native{} }
