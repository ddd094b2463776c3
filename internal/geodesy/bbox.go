package geodesy

import (
	"github.com/twpayne/go-geom"
)

// BoundingBox is an axis-aligned lat/lon rectangle. X is longitude, Y is latitude.
type BoundingBox struct {
	bounds *geom.Bounds
}

// NewBoundingBox returns the box centered on (lat, lon) whose half-width on
// each axis spans radiusMeters of ground distance.
func NewBoundingBox(lat, lon, radiusMeters float64) (BoundingBox, error) {
	latDelta, lonDelta, err := DegreeDeltas(radiusMeters, lat)
	if err != nil {
		return BoundingBox{}, err
	}
	b := geom.NewBounds(geom.XY).Set(lon-lonDelta, lat-latDelta, lon+lonDelta, lat+latDelta)
	return BoundingBox{bounds: b}, nil
}

// Contains reports whether (lat, lon) lies inside the box. All edges are inclusive.
func (b BoundingBox) Contains(lat, lon float64) bool {
	if b.bounds == nil {
		return false
	}
	return lat >= b.MinLat() && lat <= b.MaxLat() &&
		lon >= b.MinLon() && lon <= b.MaxLon()
}

// MinLat returns the southern edge.
func (b BoundingBox) MinLat() float64 { return b.bounds.Min(1) }

// MaxLat returns the northern edge.
func (b BoundingBox) MaxLat() float64 { return b.bounds.Max(1) }

// MinLon returns the western edge.
func (b BoundingBox) MinLon() float64 { return b.bounds.Min(0) }

// MaxLon returns the eastern edge.
func (b BoundingBox) MaxLon() float64 { return b.bounds.Max(0) }

// SouthWest returns the (lat, lon) of the south-west corner.
func (b BoundingBox) SouthWest() (float64, float64) { return b.MinLat(), b.MinLon() }

// NorthEast returns the (lat, lon) of the north-east corner.
func (b BoundingBox) NorthEast() (float64, float64) { return b.MaxLat(), b.MaxLon() }
