// Package enrich samples the WorldCover raster at CEO ground-truth points and
// joins both labels into the shared taxonomy.
package enrich

import "github.com/sells-group/landcover-cli/internal/taxonomy"

// SamplePoint is one CEO ground-truth point.
type SamplePoint struct {
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}

// Record joins a SamplePoint with its raster sample. Records leaving the
// Pipeline always carry both harmonized classes.
type Record struct {
	SamplePoint
	RasterCode  int            `json:"raster_code"`
	RasterLabel string         `json:"raster_label"`
	CEOClass    taxonomy.Class `json:"harmonized_ceo"`
	RasterClass taxonomy.Class `json:"harmonized_wc"`
}

// Agrees reports whether both sources chose the same shared class.
func (r Record) Agrees() bool { return r.CEOClass == r.RasterClass }

// Valid reports whether both harmonized classes are present.
func (r Record) Valid() bool {
	return r.CEOClass != taxonomy.Unclassified && r.RasterClass != taxonomy.Unclassified
}
