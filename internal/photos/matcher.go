package photos

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/geodesy"
)

// ErrPlotNotFound is returned when the plot ID has no centroid.
var ErrPlotNotFound = eris.New("photos: plot not found")

// Result is the outcome of a match. Found is false when no observation lies
// inside the search window; that is not an error.
type Result struct {
	Found          bool    `json:"found"`
	Photos         []Photo `json:"photos"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Matcher searches a fixed-radius window around plot centroids.
type Matcher struct {
	radius float64
}

// NewMatcher creates a Matcher. A non-positive radius uses DefaultRadiusMeters.
func NewMatcher(radiusMeters float64) *Matcher {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Matcher{radius: radiusMeters}
}

// Radius returns the search half-width in meters.
func (m *Matcher) Radius() float64 { return m.radius }

// Match finds the observation nearest to the plot's centroid among those
// inside the bounding box, and returns its secure photo URLs. Equal distances
// keep the observation that appears first in obs.
func (m *Matcher) Match(plotID string, centroids CentroidLookup, obs []Observation) (Result, error) {
	c, ok := centroids.Centroid(plotID)
	if !ok {
		return Result{}, eris.Wrapf(ErrPlotNotFound, "plot %s", plotID)
	}

	box, err := geodesy.NewBoundingBox(c.Lat, c.Lon, m.radius)
	if err != nil {
		return Result{}, eris.Wrapf(err, "photos: search window for plot %s", plotID)
	}

	best := -1
	bestDist := 0.0
	candidates := 0
	for i, o := range obs {
		if !box.Contains(o.Lat, o.Lon) {
			continue
		}
		candidates++
		d := geodesy.HaversineMeters(c.Lat, c.Lon, o.Lat, o.Lon)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}

	zap.L().Debug("photos: searched plot window",
		zap.String("plot_id", plotID),
		zap.Int("observations", len(obs)),
		zap.Int("candidates", candidates),
	)

	if best < 0 {
		return Result{Photos: []Photo{}}, nil
	}

	nearest := obs[best]
	photos := make([]Photo, 0, len(nearest.URLs))
	for _, du := range nearest.URLs {
		if securePhotoURL(du.URL) {
			photos = append(photos, Photo{URL: du.URL, Direction: du.Direction})
		}
	}

	return Result{
		Found:          true,
		Photos:         photos,
		Lat:            nearest.Lat,
		Lon:            nearest.Lon,
		DistanceMeters: bestDist,
	}, nil
}
