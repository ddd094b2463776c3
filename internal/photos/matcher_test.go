package photos

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-cli/internal/geodesy"
)

func testCentroids() CentroidIndex {
	return CentroidIndex{
		"p1":   {PlotID: "p1", Lat: 10.0, Lon: 20.0},
		"pole": {PlotID: "pole", Lat: 90, Lon: 0},
	}
}

func urls(north, east string) []DirectionURL {
	return []DirectionURL{
		{Direction: "lc_NorthPhotoUrl", URL: north},
		{Direction: "lc_EastPhotoUrl", URL: east},
	}
}

func TestMatcher_NearbyOnly(t *testing.T) {
	obs := []Observation{
		{Lat: 10.01, Lon: 20.01, URLs: urls("https://far.example/n.jpg", "")},
		{Lat: 10.0001, Lon: 20.0001, URLs: urls("https://near.example/n.jpg", "https://near.example/e.jpg")},
	}

	res, err := NewMatcher(50).Match("p1", testCentroids(), obs)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, 10.0001, res.Lat)
	assert.Equal(t, 20.0001, res.Lon)
	assert.InDelta(t, 15.6, res.DistanceMeters, 0.5)
	assert.Equal(t, []Photo{
		{URL: "https://near.example/n.jpg", Direction: "lc_NorthPhotoUrl"},
		{URL: "https://near.example/e.jpg", Direction: "lc_EastPhotoUrl"},
	}, res.Photos)
}

func TestMatcher_NoneInWindow(t *testing.T) {
	obs := []Observation{{Lat: 10.01, Lon: 20.01, URLs: urls("https://far.example/n.jpg", "")}}

	res, err := NewMatcher(50).Match("p1", testCentroids(), obs)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Photos)

	res, err = NewMatcher(50).Match("p1", testCentroids(), nil)
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestMatcher_PlotNotFound(t *testing.T) {
	_, err := NewMatcher(50).Match("missing", testCentroids(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlotNotFound))
}

func TestMatcher_PolarPlot(t *testing.T) {
	_, err := NewMatcher(50).Match("pole", testCentroids(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, geodesy.ErrInvalidLatitude))
	assert.False(t, errors.Is(err, ErrPlotNotFound))
}

func TestMatcher_PicksNearest(t *testing.T) {
	obs := []Observation{
		{Lat: 10.0003, Lon: 20.0, URLs: urls("https://a.example/1.jpg", "")},
		{Lat: 10.0001, Lon: 20.0, URLs: urls("https://b.example/1.jpg", "")},
		{Lat: 10.0002, Lon: 20.0, URLs: urls("https://c.example/1.jpg", "")},
	}
	res, err := NewMatcher(50).Match("p1", testCentroids(), obs)
	require.NoError(t, err)
	require.Len(t, res.Photos, 1)
	assert.Equal(t, "https://b.example/1.jpg", res.Photos[0].URL)
}

func TestMatcher_TieKeepsFirst(t *testing.T) {
	obs := []Observation{
		{Lat: 10.0001, Lon: 20.0, URLs: urls("https://first.example/1.jpg", "")},
		{Lat: 9.9999, Lon: 20.0, URLs: urls("https://second.example/1.jpg", "")},
		{Lat: 10.0001, Lon: 20.0, URLs: urls("https://third.example/1.jpg", "")},
	}
	res, err := NewMatcher(50).Match("p1", testCentroids(), obs)
	require.NoError(t, err)
	require.Len(t, res.Photos, 1)
	assert.Equal(t, "https://first.example/1.jpg", res.Photos[0].URL)
}

func TestMatcher_FiltersInsecureURLs(t *testing.T) {
	obs := []Observation{{Lat: 10.0, Lon: 20.0, URLs: []DirectionURL{
		{Direction: "lc_NorthPhotoUrl", URL: "http://insecure.example/n.jpg"},
		{Direction: "lc_EastPhotoUrl", URL: ""},
		{Direction: "lc_SouthPhotoUrl", URL: "pending approval"},
		{Direction: "lc_WestPhotoUrl", URL: "https://ok.example/w.jpg"},
		{Direction: "lc_UpwardPhotoUrl", URL: "https://"},
		{Direction: "lc_DownwardPhotoUrl", URL: "  "},
	}}}
	res, err := NewMatcher(0).Match("p1", testCentroids(), obs)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, []Photo{{URL: "https://ok.example/w.jpg", Direction: "lc_WestPhotoUrl"}}, res.Photos)
}

func TestMatcher_FoundWithoutPhotos(t *testing.T) {
	obs := []Observation{{Lat: 10.0, Lon: 20.0, URLs: urls("", "")}}
	res, err := NewMatcher(50).Match("p1", testCentroids(), obs)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Empty(t, res.Photos)
}

func TestResult_JSONKeepsZeroCoordinates(t *testing.T) {
	centroids := CentroidIndex{"origin": {PlotID: "origin", Lat: 0, Lon: 0}}
	obs := []Observation{{Lat: 0, Lon: 0, URLs: urls("https://ok.example/n.jpg", "")}}

	res, err := NewMatcher(50).Match("origin", centroids, obs)
	require.NoError(t, err)
	require.True(t, res.Found)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "lat")
	assert.Contains(t, fields, "lon")
	assert.Contains(t, fields, "distance_meters")
	assert.Equal(t, 0.0, fields["distance_meters"])
}

func TestNewMatcher_DefaultRadius(t *testing.T) {
	assert.Equal(t, DefaultRadiusMeters, NewMatcher(0).Radius())
	assert.Equal(t, DefaultRadiusMeters, NewMatcher(-1).Radius())
	assert.Equal(t, 100.0, NewMatcher(100).Radius())
}

func TestPhoto_DirectionLabel(t *testing.T) {
	assert.Equal(t, "North", Photo{Direction: "lc_NorthPhotoUrl"}.DirectionLabel())
	assert.Equal(t, "Upward", Photo{Direction: "lc_UpwardPhotoUrl"}.DirectionLabel())
	assert.Equal(t, "customUrl", Photo{Direction: "customUrl"}.DirectionLabel())
}
