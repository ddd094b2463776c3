// Package raster talks to the external raster analysis engine that samples
// land-cover images at point locations.
package raster

import "context"

// DefaultScale is the sampling resolution in meters for WorldCover.
const DefaultScale = 10.0

// Image identifies a raster image held by the analysis engine.
type Image struct {
	Asset   string `json:"asset"`
	Version string `json:"version"`
	Band    string `json:"band,omitempty"`
}

// WorldCover returns the ESA WorldCover 10m v100 classification image.
func WorldCover() Image {
	return Image{Asset: "ESA/WorldCover/v100", Version: "v100", Band: "Map"}
}

// Query is a point at which the engine should sample the image.
type Query struct {
	ID  string
	Lat float64
	Lon float64
}

// Sample is the median raster value the engine returned for a query ID.
type Sample struct {
	ID    string
	Value float64
}

// Sampler computes per-point median values of an image. IDs absent from the
// returned slice had no value at that location.
type Sampler interface {
	SampleMedian(ctx context.Context, img Image, queries []Query, scale float64) ([]Sample, error)
}
