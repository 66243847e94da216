/*
DESCRIPTION
  param.go provides the error type returned when a detector, grid or
  configuration value is invalid.

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

// Package param provides Error, the error reported for invalid or unknown
// parameters. Parameters are checked when a detector, tray grid or
// configuration is constructed, never at first use.
package param

import "fmt"

// Error describes an invalid parameter.
type Error struct {
	Name   string // Dotted parameter name, e.g. "detector.match_threshold".
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Name, e.Reason)
}

// Invalid returns an *Error for the named parameter with a formatted reason.
func Invalid(name, format string, args ...interface{}) error {
	return &Error{Name: name, Reason: fmt.Sprintf(format, args...)}
}
