package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"minewatch/internal/normalize"
	"minewatch/internal/raster"
)

var bandFiles = []struct {
	name string
	set  func(*raster.BandSet, *raster.Grid)
}{
	{"blue", func(b *raster.BandSet, g *raster.Grid) { b.Blue = g }},
	{"green", func(b *raster.BandSet, g *raster.Grid) { b.Green = g }},
	{"red", func(b *raster.BandSet, g *raster.Grid) { b.Red = g }},
	{"nir", func(b *raster.BandSet, g *raster.Grid) { b.NIR = g }},
	{"swir1", func(b *raster.BandSet, g *raster.Grid) { b.SWIR1 = g }},
	{"swir2", func(b *raster.BandSet, g *raster.Grid) { b.SWIR2 = g }},
}

// loadBands reads the six optical bands from dir. Each band is a grayscale
// raster named <band>.tif (or .png/.jpg); digital numbers are divided by
// scale to get reflectance. The rasters are georeferenced onto the
// configured grid origin at the grid resolution.
func loadBands(dir string, spec normalize.GridSpec, scale float64) (*raster.BandSet, error) {
	bands := &raster.BandSet{}
	for _, bf := range bandFiles {
		path, err := findBandFile(dir, bf.name)
		if err != nil {
			return nil, err
		}
		g, err := loadGrayscale(path, spec, 1/scale)
		if err != nil {
			return nil, fmt.Errorf("band %s: %w", bf.name, err)
		}
		bf.set(bands, g)
	}
	return bands, nil
}

// loadDEM reads an elevation raster; digital numbers scale to meters.
func loadDEM(path string, spec normalize.GridSpec, metersPerDN float64) (*raster.Grid, error) {
	g, err := loadGrayscale(path, spec, metersPerDN)
	if err != nil {
		return nil, fmt.Errorf("dem: %w", err)
	}
	return g, nil
}

func findBandFile(dir, band string) (string, error) {
	for _, ext := range []string{".tif", ".tiff", ".png", ".jpg"} {
		path := filepath.Join(dir, band+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("band %s: no raster found in %s", band, dir)
}

// loadGrayscale decodes an image and converts it to a georeferenced grid.
// A zero digital number is treated as no-data, matching how scene masks
// are burned into delivered products.
func loadGrayscale(path string, spec normalize.GridSpec, perDN float64) (*raster.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	b := img.Bounds()
	g := raster.New(b.Dx(), b.Dy(), spec.Transform(), spec.SRS)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// RGBA returns 16-bit samples, which is the native depth of
			// delivered band products.
			r, _, _, _ := img.At(x, y).RGBA()
			if r == 0 {
				continue
			}
			g.Data[g.Index(x-b.Min.X, y-b.Min.Y)] = float64(r) * perDN
		}
	}
	return g, nil
}
