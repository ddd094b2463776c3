package geodesy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundingBox_Centered(t *testing.T) {
	box, err := NewBoundingBox(10.0, 20.0, 50)
	require.NoError(t, err)

	latDelta, lonDelta, err := DegreeDeltas(50, 10.0)
	require.NoError(t, err)

	assert.InDelta(t, 10.0-latDelta, box.MinLat(), 1e-12)
	assert.InDelta(t, 10.0+latDelta, box.MaxLat(), 1e-12)
	assert.InDelta(t, 20.0-lonDelta, box.MinLon(), 1e-12)
	assert.InDelta(t, 20.0+lonDelta, box.MaxLon(), 1e-12)

	swLat, swLon := box.SouthWest()
	neLat, neLon := box.NorthEast()
	assert.Less(t, swLat, neLat)
	assert.Less(t, swLon, neLon)
}

func TestBoundingBox_Contains(t *testing.T) {
	box, err := NewBoundingBox(10.0, 20.0, 50)
	require.NoError(t, err)

	assert.True(t, box.Contains(10.0, 20.0))
	assert.True(t, box.Contains(10.0001, 20.0001))
	assert.False(t, box.Contains(10.01, 20.01))
	assert.False(t, box.Contains(10.0, 20.001))
}

func TestBoundingBox_ContainsEdgesInclusive(t *testing.T) {
	box, err := NewBoundingBox(-33.0, 151.0, 50)
	require.NoError(t, err)

	assert.True(t, box.Contains(box.MinLat(), box.MinLon()))
	assert.True(t, box.Contains(box.MaxLat(), box.MaxLon()))
	assert.True(t, box.Contains(box.MinLat(), box.MaxLon()))
	assert.True(t, box.Contains(box.MaxLat(), box.MinLon()))
}

func TestNewBoundingBox_Pole(t *testing.T) {
	_, err := NewBoundingBox(90, 0, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLatitude))
}

func TestBoundingBox_ZeroValue(t *testing.T) {
	var box BoundingBox
	assert.False(t, box.Contains(0, 0))
}
