package enrich

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/raster"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTables replaces the built-in lookup tables.
func WithTables(ceo, worldCover taxonomy.Table) Option {
	return func(p *Pipeline) {
		p.ceo = ceo
		p.worldCover = worldCover
	}
}

// WithCache memoizes Enrich results.
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithScale sets the sampling resolution in meters.
func WithScale(scale float64) Option {
	return func(p *Pipeline) {
		if scale > 0 {
			p.scale = scale
		}
	}
}

// Pipeline turns CEO points into harmonized records.
type Pipeline struct {
	sampler    raster.Sampler
	ceo        taxonomy.Table
	worldCover taxonomy.Table
	cache      Cache
	scale      float64
}

// New creates a Pipeline that samples through s.
func New(s raster.Sampler, opts ...Option) *Pipeline {
	p := &Pipeline{
		sampler:    s,
		ceo:        taxonomy.CEOTable(),
		worldCover: taxonomy.WorldCoverTable(),
		scale:      raster.DefaultScale,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich samples img at every point, inner-joins the results back by ID,
// harmonizes both labels, and drops records either side could not classify.
// Output order follows points.
func (p *Pipeline) Enrich(ctx context.Context, points []SamplePoint, img raster.Image) ([]Record, error) {
	var key CacheKey
	if p.cache != nil {
		key = NewCacheKey(points, img, p.scale)
		if recs, ok := p.cache.Get(key); ok {
			zap.L().Debug("enrich: cache hit", zap.Int("records", len(recs)))
			return recs, nil
		}
	}

	samples, err := p.sampler.SampleMedian(ctx, img, Queries(points), p.scale)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: sample raster")
	}

	byID := make(map[string]float64, len(samples))
	for _, s := range samples {
		byID[s.ID] = s.Value
	}

	records := make([]Record, 0, len(points))
	var unmatched, unclassified int
	for _, pt := range points {
		value, ok := byID[pt.ID]
		if !ok {
			unmatched++
			continue
		}
		rec := p.harmonize(pt, value)
		if !rec.Valid() {
			unclassified++
			continue
		}
		records = append(records, rec)
	}

	zap.L().Debug("enrich: harmonized points",
		zap.Int("points", len(points)),
		zap.Int("records", len(records)),
		zap.Int("unmatched", unmatched),
		zap.Int("unclassified", unclassified),
	)

	if p.cache != nil {
		p.cache.Put(key, records)
	}
	return records, nil
}

// Queries builds one raster query per point, preserving order.
func Queries(points []SamplePoint) []raster.Query {
	queries := make([]raster.Query, len(points))
	for i, pt := range points {
		queries[i] = raster.Query{ID: pt.ID, Lat: pt.Lat, Lon: pt.Lon}
	}
	return queries
}

func (p *Pipeline) harmonize(pt SamplePoint, value float64) Record {
	code := int(math.Round(value))
	label, _ := taxonomy.WorldCoverLabel(code)
	return Record{
		SamplePoint: pt,
		RasterCode:  code,
		RasterLabel: label,
		CEOClass:    taxonomy.Harmonize(p.ceo, pt.Label),
		RasterClass: taxonomy.Harmonize(p.worldCover, label),
	}
}
