// Package geodesy provides great-circle distance and ground-distance to
// degree conversions for small search windows around sample plots.
package geodesy

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMeters is the mean Earth radius used by all distance math.
const EarthRadiusMeters = 6_371_000.0

// ErrInvalidLatitude is returned when a degree delta cannot be computed at the
// given latitude (at or beyond the poles, or NaN).
var ErrInvalidLatitude = eris.New("geodesy: invalid latitude")

// HaversineMeters returns the great-circle distance in meters between two
// points given in decimal degrees.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a slightly above 1 for antipodal points.
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(a))
}

// DegreeDeltas returns the latitude and longitude offsets, in degrees, that
// span groundMeters at the given reference latitude. The longitude delta is
// widened by 1/cos(latitude) for meridian convergence.
func DegreeDeltas(groundMeters, latitude float64) (latDelta, lonDelta float64, err error) {
	if math.IsNaN(latitude) || math.Abs(latitude) >= 90 {
		return 0, 0, eris.Wrapf(ErrInvalidLatitude, "latitude %v", latitude)
	}

	half := math.Sin(groundMeters / (2 * EarthRadiusMeters))
	latDelta = 360 / math.Pi * math.Asin(half)

	lonArg := half / math.Cos(radians(latitude))
	if math.Abs(lonArg) > 1 {
		return 0, 0, eris.Wrapf(ErrInvalidLatitude, "distance %vm wraps the pole at latitude %v", groundMeters, latitude)
	}
	lonDelta = 360 / math.Pi * math.Asin(lonArg)

	return latDelta, lonDelta, nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
