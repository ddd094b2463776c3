package enrich

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"math"
	"sync"

	"github.com/sells-group/landcover-cli/internal/raster"
)

// CacheKey identifies an Enrich call by dataset content and image version.
type CacheKey struct {
	Dataset string
	Image   string
}

// NewCacheKey hashes the ordered points together with the sampling scale.
func NewCacheKey(points []SamplePoint, img raster.Image, scale float64) CacheKey {
	h := sha256.New()
	for _, pt := range points {
		writeString(h, pt.ID)
		writeFloat(h, pt.Lat)
		writeFloat(h, pt.Lon)
		writeString(h, pt.Label)
	}
	writeFloat(h, scale)
	return CacheKey{
		Dataset: fmt.Sprintf("%x", h.Sum(nil)),
		Image:   img.Asset + "@" + img.Version + "/" + img.Band,
	}
}

func writeString(h hash.Hash, s string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func writeFloat(h hash.Hash, f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	h.Write(b[:])
}

// Cache memoizes enriched records.
type Cache interface {
	Get(key CacheKey) ([]Record, bool)
	Put(key CacheKey, records []Record)
}

// MemoryCache is a Cache bounded to a fixed number of entries. When full,
// the oldest entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	max     int
	order   []CacheKey
	entries map[CacheKey][]Record
}

// NewMemoryCache creates a cache holding at most maxEntries results.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 32
	}
	return &MemoryCache{max: maxEntries, entries: make(map[CacheKey][]Record)}
}

// Get returns a copy of the cached records.
func (c *MemoryCache) Get(key CacheKey) ([]Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out, true
}

// Put stores a copy of records under key.
func (c *MemoryCache) Put(key CacheKey, records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	stored := make([]Record, len(records))
	copy(stored, records)
	c.entries[key] = stored
}

// Len returns the number of cached results.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
