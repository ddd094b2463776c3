package raster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-cli/internal/resilience"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

// Sentinel-2 QA60 bits.
const (
	QA60OpaqueCloudBit uint16 = 1 << 10
	QA60CirrusBit      uint16 = 1 << 11
)

const compositePath = "/v1/composite"

// ClearSky reports whether a QA60 pixel value has neither the opaque cloud nor
// the cirrus bit set. Both bits are tested independently and combined.
func ClearSky(qa uint16) bool {
	return qa&QA60OpaqueCloudBit == 0 && qa&QA60CirrusBit == 0
}

// CloudMaskExpression is the engine-side form of ClearSky over the QA60 band,
// built from the same bit constants. The engine evaluates it per pixel.
func CloudMaskExpression() string {
	return fmt.Sprintf("(QA60 & %d) == 0 && (QA60 & %d) == 0", QA60OpaqueCloudBit, QA60CirrusBit)
}

// CompositeSpec describes a median composite layer for the map basemap.
type CompositeSpec struct {
	Collection       string         `json:"collection"`
	Start            string         `json:"start,omitempty"`
	End              string         `json:"end,omitempty"`
	MaxCloudyPercent float64        `json:"max_cloudy_percent,omitempty"`
	Mask             string         `json:"mask,omitempty"`
	ScaleFactor      float64        `json:"scale_factor,omitempty"`
	Reducer          string         `json:"reducer"`
	Visualization    map[string]any `json:"visualization"`
}

// SentinelComposite returns the cloud-masked Sentinel-2 surface reflectance
// median composite for one calendar year.
func SentinelComposite(year int) CompositeSpec {
	return CompositeSpec{
		Collection:       "COPERNICUS/S2_SR",
		Start:            time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
		End:              time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
		MaxCloudyPercent: 20,
		Mask:             CloudMaskExpression(),
		ScaleFactor:      1.0 / 10000,
		Reducer:          "median",
		Visualization: map[string]any{
			"min":   0.0,
			"max":   0.3,
			"bands": []string{"B4_median", "B3_median", "B2_median"},
		},
	}
}

// WorldCoverLayer returns the WorldCover image styled with harmonized class
// colors, one palette entry per raster code.
func WorldCoverLayer(wc taxonomy.Table) CompositeSpec {
	codes := taxonomy.WorldCoverCodes()
	palette := make([]string, 0, len(codes))
	for _, code := range codes {
		label, _ := taxonomy.WorldCoverLabel(code)
		palette = append(palette, taxonomy.Harmonize(wc, label).Color())
	}
	return CompositeSpec{
		Collection: WorldCover().Asset,
		Reducer:    "first",
		Visualization: map[string]any{
			"min":     codes[0],
			"max":     codes[len(codes)-1],
			"palette": palette,
		},
	}
}

// Layer is a rendered map layer returned by the engine.
type Layer struct {
	TileURL string `json:"tile_url"`
	MapID   string `json:"map_id"`
}

// Composite asks the engine to build a map layer for spec.
func (c *Client) Composite(ctx context.Context, spec CompositeSpec) (*Layer, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, eris.Wrap(err, "raster: encode composite")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Layer, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "raster: rate limit")
		}
		respBody, err := c.post(ctx, compositePath, body)
		if err != nil {
			return nil, err
		}
		var layer Layer
		if err := json.Unmarshal(respBody, &layer); err != nil {
			return nil, eris.Wrap(err, "raster: parse composite")
		}
		if layer.TileURL == "" {
			return nil, eris.New("raster: composite response missing tile_url")
		}
		return &layer, nil
	})
}
