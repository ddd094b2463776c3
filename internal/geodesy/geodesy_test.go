package geodesy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// HaversineMeters
// ---------------------------------------------------------------------------

func TestHaversineMeters_Identity(t *testing.T) {
	points := [][2]float64{
		{0, 0}, {10, 20}, {-33.86, 151.21}, {90, 0}, {-90, 180}, {45.5, -179.99},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, HaversineMeters(p[0], p[1], p[0], p[1]), "point %v", p)
	}
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{10, 20, 10.0001, 20.0001},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{-45, 170, 45, -170},
		{0, 0, 0, 180},
	}
	for _, p := range pairs {
		ab := HaversineMeters(p[0], p[1], p[2], p[3])
		ba := HaversineMeters(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-6, "pair %v", p)
	}
}

func TestHaversineMeters_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{"one degree of latitude", 0, 0, 1, 0, 111_194.9, 1},
		{"london to new york", 51.5074, -0.1278, 40.7128, -74.0060, 5_570_000, 5_000},
		{"short hop near plot", 10.0, 20.0, 10.0001, 20.0001, 15.6, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, got, tt.delta)
		})
	}
}

func TestHaversineMeters_Antipodal(t *testing.T) {
	got := HaversineMeters(0, 0, 0, 180)
	require.False(t, math.IsNaN(got))
	assert.InDelta(t, math.Pi*EarthRadiusMeters, got, 1e-3)

	got = HaversineMeters(37.5, -122.3, -37.5, 57.7)
	require.False(t, math.IsNaN(got))
	assert.InDelta(t, math.Pi*EarthRadiusMeters, got, 1)
}

func TestHaversineMeters_TriangleInequality(t *testing.T) {
	a := [2]float64{10, 20}
	b := [2]float64{10.5, 20.7}
	c := [2]float64{-3, 44}

	ab := HaversineMeters(a[0], a[1], b[0], b[1])
	bc := HaversineMeters(b[0], b[1], c[0], c[1])
	ac := HaversineMeters(a[0], a[1], c[0], c[1])
	assert.LessOrEqual(t, ac, ab+bc+1e-6)
}

// ---------------------------------------------------------------------------
// DegreeDeltas
// ---------------------------------------------------------------------------

func TestDegreeDeltas_RoundTrip(t *testing.T) {
	for _, d := range []float64{4, 50, 1000} {
		for lat := -88.5; lat < 89; lat += 7.5 {
			latDelta, lonDelta, err := DegreeDeltas(d, lat)
			require.NoError(t, err)

			north := HaversineMeters(lat, 0, lat+latDelta, 0)
			east := HaversineMeters(lat, 0, lat, lonDelta)
			assert.InEpsilon(t, d, north, 0.01, "north d=%v lat=%v", d, lat)
			assert.InEpsilon(t, d, east, 0.01, "east d=%v lat=%v", d, lat)
		}
	}
}

func TestDegreeDeltas_LongitudeWidensWithLatitude(t *testing.T) {
	latEq, lonEq, err := DegreeDeltas(50, 0)
	require.NoError(t, err)
	latHigh, lonHigh, err := DegreeDeltas(50, 60)
	require.NoError(t, err)

	assert.InDelta(t, latEq, latHigh, 1e-12)
	assert.InDelta(t, latEq, lonEq, 1e-12)
	assert.InDelta(t, 2*lonEq, lonHigh, 1e-9)
}

func TestDegreeDeltas_Poles(t *testing.T) {
	for _, lat := range []float64{90, -90, 91, math.NaN()} {
		_, _, err := DegreeDeltas(50, lat)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidLatitude), "lat %v", lat)
	}
}

func TestDegreeDeltas_WrapsPole(t *testing.T) {
	_, _, err := DegreeDeltas(500_000, 89.9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLatitude))
}

func TestDegreeDeltas_Zero(t *testing.T) {
	latDelta, lonDelta, err := DegreeDeltas(0, 45)
	require.NoError(t, err)
	assert.Equal(t, 0.0, latDelta)
	assert.Equal(t, 0.0, lonDelta)
}
