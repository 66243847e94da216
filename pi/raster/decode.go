/*
DESCRIPTION
  decode.go provides pure Go image file loading, scaling and saving for
  Planes.

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

package raster

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image file at path and scales it by scale. PNG, JPEG, BMP,
// TIFF and WebP files are supported.
func Load(path string, scale float64) (Plane, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plane{}, fmt.Errorf("could not open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Plane{}, fmt.Errorf("could not decode %s: %w", path, err)
	}

	p, err := FromImage(img)
	if err != nil {
		return Plane{}, fmt.Errorf("could not convert %s: %w", path, err)
	}
	return Scale(p, scale)
}

// Scale resizes p by factor using Catmull-Rom resampling. The resulting size
// is truncated to whole pixels and must be at least 1x1.
func Scale(p Plane, factor float64) (Plane, error) {
	if factor <= 0 {
		return Plane{}, fmt.Errorf("invalid scale factor: %v", factor)
	}
	if factor == 1 {
		return p, nil
	}

	w, h := int(float64(p.w)*factor), int(float64(p.h)*factor)
	if w < 1 || h < 1 {
		return Plane{}, fmt.Errorf("scale factor %v reduces %dx%d image to nothing", factor, p.w, p.h)
	}

	src := p.Image()
	var dst draw.Image
	if p.c == 1 {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromImage(dst)
}

// Save encodes p to path as JPEG if the extension is .jpg or .jpeg and as
// PNG otherwise.
func Save(path string, p Plane) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create image file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, p.Image(), &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(f, p.Image())
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	return f.Close()
}
