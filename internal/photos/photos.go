// Package photos finds the GLOBE ground-photo observation nearest to a CEO
// sampling plot within a small search window.
package photos

import (
	"net/url"
	"strings"
)

// DefaultRadiusMeters is the half-width of the search window around a plot.
const DefaultRadiusMeters = 50.0

// Centroid is the center of one sampling plot.
type Centroid struct {
	PlotID string  `json:"plot_id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// CentroidLookup resolves plot IDs to centroids.
type CentroidLookup interface {
	Centroid(plotID string) (Centroid, bool)
}

// CentroidIndex is a map-backed CentroidLookup.
type CentroidIndex map[string]Centroid

// Centroid implements CentroidLookup.
func (idx CentroidIndex) Centroid(plotID string) (Centroid, bool) {
	c, ok := idx[plotID]
	return c, ok
}

// DirectionURL is one named photo field of an observation. URL may be empty.
type DirectionURL struct {
	Direction string `json:"direction"`
	URL       string `json:"url"`
}

// Observation is one GLOBE land-cover observation.
type Observation struct {
	Lat  float64        `json:"lat"`
	Lon  float64        `json:"lon"`
	URLs []DirectionURL `json:"urls"`
}

// Photo is a usable photo link from the matched observation.
type Photo struct {
	URL       string `json:"url"`
	Direction string `json:"direction"`
}

// DirectionLabel strips the dataset's field decoration, turning
// "lc_NorthPhotoUrl" into "North".
func (p Photo) DirectionLabel() string {
	return strings.TrimSuffix(strings.TrimPrefix(p.Direction, "lc_"), "PhotoUrl")
}

// securePhotoURL reports whether raw is an absolute https URL with a host.
func securePhotoURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https") && u.Host != ""
}
