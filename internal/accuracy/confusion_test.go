package accuracy

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

func rec(ceo, wc taxonomy.Class) enrich.Record {
	return enrich.Record{CEOClass: ceo, RasterClass: wc}
}

func TestConfusionMatrix_ThreeRecordScenario(t *testing.T) {
	records := []enrich.Record{
		rec(taxonomy.Trees, taxonomy.Trees),
		rec(taxonomy.Trees, taxonomy.Shrubland),
		rec(taxonomy.Grassland, taxonomy.Grassland),
	}
	m := NewConfusionMatrix(records)

	assert.Equal(t, 3, m.Total())
	assert.Equal(t, 1, m.Count(taxonomy.Trees, taxonomy.Trees))
	assert.Equal(t, 1, m.Count(taxonomy.Trees, taxonomy.Shrubland))
	assert.Equal(t, 1.0, m.Value(taxonomy.Trees, taxonomy.Trees))
	assert.Equal(t, 1.0, m.Value(taxonomy.Trees, taxonomy.Shrubland))
	assert.Equal(t, 1.0, m.Value(taxonomy.Grassland, taxonomy.Grassland))

	agreed, err := m.MostAgreed()
	require.NoError(t, err)
	// Grassland and Trees both score 1; Grassland is first in class order.
	assert.Equal(t, taxonomy.Grassland, agreed.Truth)
	assert.Equal(t, 1.0, agreed.Value)

	confused, err := m.MostConfused()
	require.NoError(t, err)
	assert.Equal(t, taxonomy.Trees, confused.Truth)
	assert.Equal(t, taxonomy.Shrubland, confused.Predicted)
	assert.Equal(t, 1.0, confused.Value)
	assert.Equal(t, "Trees for Shrubland", confused.String())

	assert.InDelta(t, 2.0/3.0, Agreement(records), 1e-12)
}

func TestConfusionMatrix_ColumnNormalization(t *testing.T) {
	records := []enrich.Record{
		rec(taxonomy.Trees, taxonomy.Trees),
		rec(taxonomy.Trees, taxonomy.Trees),
		rec(taxonomy.Shrubland, taxonomy.Trees),
		rec(taxonomy.Cropland, taxonomy.Trees),
		rec(taxonomy.Cropland, taxonomy.Cropland),
		rec(taxonomy.WaterBodies, taxonomy.Wetland),
	}
	m := NewConfusionMatrix(records)

	assert.InDelta(t, 0.5, m.Value(taxonomy.Trees, taxonomy.Trees), 1e-12)
	assert.InDelta(t, 0.25, m.Value(taxonomy.Shrubland, taxonomy.Trees), 1e-12)
	assert.InDelta(t, 0.25, m.Value(taxonomy.Cropland, taxonomy.Trees), 1e-12)

	for _, c := range taxonomy.Classes() {
		sum := m.ColumnSum(c)
		switch c {
		case taxonomy.Trees, taxonomy.Cropland, taxonomy.Wetland:
			assert.InDelta(t, 1.0, sum, 1e-12, c)
		default:
			assert.Equal(t, 0.0, sum, c)
		}
	}

	confused, err := m.MostConfused()
	require.NoError(t, err)
	assert.Equal(t, taxonomy.WaterBodies, confused.Truth)
	assert.Equal(t, taxonomy.Wetland, confused.Predicted)
	assert.Equal(t, 1.0, confused.Value)

	agreed, err := m.MostAgreed()
	require.NoError(t, err)
	assert.Equal(t, taxonomy.Cropland, agreed.Truth)
}

func TestConfusionMatrix_ConfusedTieBreaksRowMajor(t *testing.T) {
	records := []enrich.Record{
		rec(taxonomy.Snow, taxonomy.Grassland),
		rec(taxonomy.Shrubland, taxonomy.Barren),
	}
	m := NewConfusionMatrix(records)

	confused, err := m.MostConfused()
	require.NoError(t, err)
	// Both off-diagonal cells are 1; Shrubland's row comes before Snow's.
	assert.Equal(t, taxonomy.Shrubland, confused.Truth)
	assert.Equal(t, taxonomy.Barren, confused.Predicted)

	agreed, err := m.MostAgreed()
	require.NoError(t, err)
	assert.Equal(t, taxonomy.Grassland, agreed.Truth)
	assert.Equal(t, 0.0, agreed.Value)
}

func TestConfusionMatrix_Empty(t *testing.T) {
	m := NewConfusionMatrix(nil)
	assert.Equal(t, 0, m.Total())

	_, err := m.MostAgreed()
	assert.True(t, errors.Is(err, ErrNotAvailable))
	_, err = m.MostConfused()
	assert.True(t, errors.Is(err, ErrNotAvailable))

	for _, row := range m.Normalized() {
		for _, v := range row {
			assert.Equal(t, 0.0, v)
		}
	}
}

func TestConfusionMatrix_IgnoresUnknownClasses(t *testing.T) {
	m := NewConfusionMatrix([]enrich.Record{
		rec(taxonomy.Unclassified, taxonomy.Trees),
		rec("Moss", taxonomy.Trees),
		rec(taxonomy.Trees, taxonomy.Trees),
	})
	assert.Equal(t, 1, m.Total())
	assert.Equal(t, 0, m.Count("Moss", taxonomy.Trees))
	assert.Equal(t, 0.0, m.Value(taxonomy.Trees, "Moss"))
	assert.Equal(t, 0.0, m.ColumnSum("Moss"))
}

func TestConfusionMatrix_Copies(t *testing.T) {
	m := NewConfusionMatrix([]enrich.Record{rec(taxonomy.Trees, taxonomy.Trees)})
	n := m.Normalized()
	require.Len(t, n, 9)
	n[4][4] = 99
	assert.Equal(t, 1.0, m.Value(taxonomy.Trees, taxonomy.Trees))

	classes := m.Classes()
	classes[0] = "x"
	assert.Equal(t, taxonomy.Grassland, m.Classes()[0])
}

func TestConfusionMatrix_MarshalJSON(t *testing.T) {
	m := NewConfusionMatrix([]enrich.Record{rec(taxonomy.Trees, taxonomy.Trees)})
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded struct {
		Classes    []string    `json:"classes"`
		Counts     [][]float64 `json:"counts"`
		Normalized [][]float64 `json:"normalized"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Classes, 9)
	assert.Equal(t, 1.0, decoded.Counts[4][4])
	assert.Equal(t, 1.0, decoded.Normalized[4][4])
}
