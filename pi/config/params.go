/*
DESCRIPTION
  params.go provides Parameters, the validated detection parameters read
  from a parameters YAML file.

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

// Package config reads the detection parameters and the tray catalog from
// YAML. Unknown keys are rejected and every value is checked when the file
// is read, so that a bad configuration fails before any image is processed.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ausocean/traysense/pi/param"
)

// Source is an image file and the factor it is scaled by once loaded.
type Source struct {
	Path  string  `yaml:"path"`
	Scale float64 `yaml:"scale"`
}

// TrayRef names a tray in the catalog and the factor its dimensions are
// scaled by.
type TrayRef struct {
	Name  string  `yaml:"name"`
	Scale float64 `yaml:"scale"`
}

// Preprocessing holds adaptive thresholding parameters applied to the image
// and calibration pattern before calibration.
type Preprocessing struct {
	BlockRadius int     `yaml:"block_radius"`
	C           float64 `yaml:"c"`
}

// BlockSize returns the adaptive threshold neighbourhood size.
func (p *Preprocessing) BlockSize() int { return 2*p.BlockRadius + 1 }

// ClusterDetector holds the parameters of the cluster based calibration
// point detector.
type ClusterDetector struct {
	MatchThreshold      float64 `yaml:"match_threshold"`
	ClusteringBandwidth float64 `yaml:"clustering_bandwidth"`
}

// Calibration describes how calibration points are found.
type Calibration struct {
	Pattern       Source          `yaml:"pattern"`
	Preprocessing *Preprocessing  `yaml:"preprocessing"`
	Detector      ClusterDetector `yaml:"detector"`
}

// PeakDetector holds the parameters of a per-cell sensor detector.
type PeakDetector struct {
	MatchThreshold float64 `yaml:"match_threshold"`
}

// Sensor describes one sensor type.
type Sensor struct {
	Name     string       `yaml:"name"`
	Pattern  Source       `yaml:"pattern"`
	Detector PeakDetector `yaml:"detector"`
}

// Parameters is the content of a parameters file.
type Parameters struct {
	Image       Source      `yaml:"image"`
	Tray        TrayRef     `yaml:"tray"`
	Calibration Calibration `yaml:"calibration_detector"`
	Sensors     []Sensor    `yaml:"sensor_detectors"`
	Workers     int         `yaml:"workers"` // Zero selects the number of CPUs.
}

// LoadParameters reads and validates the parameters file at path. Relative
// image paths are resolved against the directory holding the file.
func LoadParameters(path string) (*Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open parameters file: %w", err)
	}
	defer f.Close()

	p, err := ParseParameters(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.resolve(filepath.Dir(path))
	return p, nil
}

// ParseParameters decodes and validates parameters from r.
func ParseParameters(r io.Reader) (*Parameters, error) {
	var p Parameters
	if err := decodeStrict(r, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// decodeStrict decodes a single YAML document from r into v, rejecting keys
// with no corresponding field.
func decodeStrict(r io.Reader, v interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(v)
	var te *yaml.TypeError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return errors.New("empty document")
	case errors.As(err, &te):
		return &param.Error{Name: "document", Reason: strings.Join(te.Errors, "; ")}
	default:
		return fmt.Errorf("could not parse YAML: %w", err)
	}
}

// Validate checks that every parameter is present and in range.
func (p *Parameters) Validate() error {
	if err := p.Image.validate("image"); err != nil {
		return err
	}
	if p.Tray.Name == "" {
		return param.Invalid("tray.name", "is required")
	}
	if !positive(p.Tray.Scale) {
		return param.Invalid("tray.scale", "must be positive, got %v", p.Tray.Scale)
	}

	c := &p.Calibration
	if err := c.Pattern.validate("calibration_detector.pattern"); err != nil {
		return err
	}
	if pp := c.Preprocessing; pp != nil {
		if pp.BlockRadius <= 0 {
			return param.Invalid("calibration_detector.preprocessing.block_radius", "must be positive, got %d", pp.BlockRadius)
		}
		if math.IsNaN(pp.C) || math.IsInf(pp.C, 0) {
			return param.Invalid("calibration_detector.preprocessing.c", "must be finite, got %v", pp.C)
		}
	}
	if t := c.Detector.MatchThreshold; math.IsNaN(t) || t < -1 || t >= 1 {
		return param.Invalid("calibration_detector.detector.match_threshold", "must be in [-1, 1), got %v", t)
	}
	if !positive(c.Detector.ClusteringBandwidth) {
		return param.Invalid("calibration_detector.detector.clustering_bandwidth", "must be positive, got %v", c.Detector.ClusteringBandwidth)
	}

	if len(p.Sensors) == 0 {
		return param.Invalid("sensor_detectors", "at least one sensor detector is required")
	}
	names := make(map[string]int)
	for i, s := range p.Sensors {
		prefix := fmt.Sprintf("sensor_detectors[%d]", i)
		if s.Name == "" {
			return param.Invalid(prefix+".name", "is required")
		}
		if j, ok := names[s.Name]; ok {
			return param.Invalid(prefix+".name", "%q already used by sensor_detectors[%d]", s.Name, j)
		}
		names[s.Name] = i
		if err := s.Pattern.validate(prefix + ".pattern"); err != nil {
			return err
		}
		if t := s.Detector.MatchThreshold; math.IsNaN(t) || t < 0 || t >= 1 {
			return param.Invalid(prefix+".detector.match_threshold", "must be in [0, 1), got %v", t)
		}
	}

	if p.Workers < 0 {
		return param.Invalid("workers", "must not be negative, got %d", p.Workers)
	}
	return nil
}

func (s *Source) validate(prefix string) error {
	if s.Path == "" {
		return param.Invalid(prefix+".path", "is required")
	}
	if !positive(s.Scale) {
		return param.Invalid(prefix+".scale", "must be positive, got %v", s.Scale)
	}
	return nil
}

func (p *Parameters) resolve(dir string) {
	for _, s := range p.sources() {
		if !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(dir, s.Path)
		}
	}
}

func (p *Parameters) sources() []*Source {
	out := []*Source{&p.Image, &p.Calibration.Pattern}
	for i := range p.Sensors {
		out = append(out, &p.Sensors[i].Pattern)
	}
	return out
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
