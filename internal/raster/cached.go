package raster

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SampleCache persists engine results keyed by a per-point hash.
type SampleCache interface {
	GetSamples(ctx context.Context, keys []string) (map[string]float64, error)
	PutSamples(ctx context.Context, values map[string]float64, ttl time.Duration) error
}

// CachedSampler serves repeated point samples from a SampleCache and only
// sends misses to the wrapped Sampler.
type CachedSampler struct {
	next  Sampler
	cache SampleCache
	ttl   time.Duration
}

// NewCachedSampler wraps next with cache. Entries live for ttl.
func NewCachedSampler(next Sampler, cache SampleCache, ttl time.Duration) *CachedSampler {
	return &CachedSampler{next: next, cache: cache, ttl: ttl}
}

// SampleMedian implements Sampler.
func (s *CachedSampler) SampleMedian(ctx context.Context, img Image, queries []Query, scale float64) ([]Sample, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	keys := make([]string, len(queries))
	for i, q := range queries {
		keys[i] = SampleKey(img, q, scale)
	}

	hits, err := s.cache.GetSamples(ctx, keys)
	if err != nil {
		zap.L().Warn("raster: sample cache read failed", zap.Error(err))
		hits = nil
	}

	var misses []Query
	for i, q := range queries {
		if _, ok := hits[keys[i]]; !ok {
			misses = append(misses, q)
		}
	}

	fresh := map[string]float64{}
	if len(misses) > 0 {
		samples, err := s.next.SampleMedian(ctx, img, misses, scale)
		if err != nil {
			return nil, eris.Wrap(err, "raster: cached sampler")
		}
		byID := make(map[string]float64, len(samples))
		for _, smp := range samples {
			byID[smp.ID] = smp.Value
		}
		for _, q := range misses {
			if v, ok := byID[q.ID]; ok {
				fresh[SampleKey(img, q, scale)] = v
			}
		}
		if err := s.cache.PutSamples(ctx, fresh, s.ttl); err != nil {
			zap.L().Warn("raster: sample cache write failed", zap.Error(err))
		}
	}

	zap.L().Debug("raster: sample cache",
		zap.Int("hits", len(queries)-len(misses)),
		zap.Int("misses", len(misses)),
	)

	out := make([]Sample, 0, len(queries))
	for i, q := range queries {
		if v, ok := hits[keys[i]]; ok {
			out = append(out, Sample{ID: q.ID, Value: v})
			continue
		}
		if v, ok := fresh[keys[i]]; ok {
			out = append(out, Sample{ID: q.ID, Value: v})
		}
	}
	return out, nil
}

// SampleKey returns the cache key for one query point. The ID is part of the
// key so a point's value is never served under another identifier.
func SampleKey(img Image, q Query, scale float64) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%.7f|%.7f|%g", img.Asset, img.Version, img.Band, q.ID, q.Lat, q.Lon, scale)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}
