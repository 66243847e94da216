/*
DESCRIPTION
  catalog.go provides Catalog, a cache of the tray definitions held in a
  trays YAML file.

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

package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/ausocean/traysense/pi/param"
	"github.com/ausocean/traysense/pi/tray"
)

// TrayDef is one entry of a trays file.
type TrayDef struct {
	Name string `yaml:"name"`
	Tray struct {
		Rows   int     `yaml:"rows"`
		Cols   int     `yaml:"cols"`
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"tray"`
	Cell struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"cell"`
}

// Spec returns the tray dimensions of d.
func (d *TrayDef) Spec() tray.Spec {
	return tray.Spec{
		Name:       d.Name,
		Rows:       d.Tray.Rows,
		Cols:       d.Tray.Cols,
		Width:      d.Tray.Width,
		Height:     d.Tray.Height,
		CellWidth:  d.Cell.Width,
		CellHeight: d.Cell.Height,
	}
}

// ParseTrays decodes and validates a list of tray definitions from r.
func ParseTrays(r io.Reader) (map[string]tray.Spec, error) {
	var defs []TrayDef
	if err := decodeStrict(r, &defs); err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, param.Invalid("trays", "no trays defined")
	}

	specs := make(map[string]tray.Spec, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, param.Invalid(fmt.Sprintf("trays[%d].name", i), "is required")
		}
		if _, ok := specs[d.Name]; ok {
			return nil, param.Invalid(fmt.Sprintf("trays[%d].name", i), "duplicate tray %q", d.Name)
		}
		s := d.Spec()
		if _, err := tray.New(s, 1); err != nil {
			return nil, fmt.Errorf("trays[%d] (%s): %w", i, d.Name, err)
		}
		specs[d.Name] = s
	}
	return specs, nil
}

// Catalog provides the trays defined in a trays file. The file is read on
// first use and kept until Invalidate is called. A Catalog is safe for
// concurrent use.
type Catalog struct {
	path string

	mu    sync.Mutex
	specs map[string]tray.Spec // Nil until loaded.
}

// NewCatalog returns a Catalog backed by the trays file at path. The file is
// not read until it is needed.
func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

// Lookup returns the grid of the named tray with all lengths multiplied by
// scale.
func (c *Catalog) Lookup(name string, scale float64) (*tray.Grid, error) {
	specs, err := c.load()
	if err != nil {
		return nil, err
	}
	s, ok := specs[name]
	if !ok {
		return nil, param.Invalid("tray.name", "unknown tray %q in %s", name, c.path)
	}
	return tray.New(s, scale)
}

// Names returns the names of all trays in the catalog in sorted order.
func (c *Catalog) Names() ([]string, error) {
	specs, err := c.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Invalidate discards the cached trays so the file is read again on next
// use.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.specs = nil
	c.mu.Unlock()
}

func (c *Catalog) load() (map[string]tray.Spec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.specs != nil {
		return c.specs, nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("could not open trays file: %w", err)
	}
	defer f.Close()

	specs, err := ParseTrays(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}
	c.specs = specs
	return specs, nil
}
