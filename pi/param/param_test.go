/*
DESCRIPTION
  param_test.go provides testing for parameter errors.

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

package param

import (
	"errors"
	"fmt"
	"testing"
)

func TestInvalid(t *testing.T) {
	err := fmt.Errorf("could not build grid: %w", Invalid("tray.rows", "must be positive, got %d", -2))

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error in chain, got: %v", err)
	}
	if pe.Name != "tray.rows" {
		t.Errorf("unexpected name. Got: %s, Want: tray.rows", pe.Name)
	}
	const want = "invalid parameter tray.rows: must be positive, got -2"
	if pe.Error() != want {
		t.Errorf("unexpected message. Got: %q, Want: %q", pe.Error(), want)
	}
}
