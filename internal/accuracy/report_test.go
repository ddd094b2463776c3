package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

func TestAgreement(t *testing.T) {
	assert.Equal(t, 0.0, Agreement(nil))
	assert.Equal(t, 0.0, Agreement([]enrich.Record{}))
	assert.Equal(t, 1.0, Agreement([]enrich.Record{rec(taxonomy.Snow, taxonomy.Snow)}))
	assert.Equal(t, 0.5, Agreement([]enrich.Record{
		rec(taxonomy.Snow, taxonomy.Snow),
		rec(taxonomy.Snow, taxonomy.Barren),
	}))
}

func TestEvaluate(t *testing.T) {
	rep := Evaluate([]enrich.Record{
		rec(taxonomy.Trees, taxonomy.Trees),
		rec(taxonomy.Trees, taxonomy.Shrubland),
		rec(taxonomy.Grassland, taxonomy.Grassland),
	})
	assert.Equal(t, 3, rep.Total)
	assert.InDelta(t, 0.6667, rep.Agreement, 1e-4)
	require.NotNil(t, rep.MostAgreed)
	require.NotNil(t, rep.MostConfused)
	assert.Equal(t, "Trees for Shrubland", rep.MostConfused.String())
	require.NotNil(t, rep.Matrix)
}

func TestEvaluate_Empty(t *testing.T) {
	rep := Evaluate(nil)
	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 0.0, rep.Agreement)
	assert.Nil(t, rep.MostAgreed)
	assert.Nil(t, rep.MostConfused)
	assert.NotNil(t, rep.Matrix)
}
