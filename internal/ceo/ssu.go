package ceo

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-cli/internal/fetcher"
)

// SSU is one secondary sampling unit, a labeled point inside a plot.
type SSU struct {
	AOI       string  `json:"aoi"`
	PlotID    string  `json:"plot_id"`
	ObjectID  string  `json:"object_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	LandCover string  `json:"land_cover"`
}

// AOIKey implements Unit.
func (s SSU) AOIKey() string { return s.AOI }

// PlotKey implements Unit.
func (s SSU) PlotKey() string { return s.PlotID }

// ParseSSU reads the secondary sampling unit table.
func ParseSSU(t fetcher.Table) ([]SSU, error) {
	idx, err := columns(t, ColAOI, ColPlotID, ColObjectID, ColLat, ColLon, ColLandCover)
	if err != nil {
		return nil, eris.Wrap(err, "ceo: parse ssu")
	}

	out := make([]SSU, 0, len(t.Rows))
	for r, row := range t.Rows {
		n := r + 1
		lat, err := parseFloat(row, idx[ColLat], n, ColLat)
		if err != nil {
			return nil, err
		}
		lon, err := parseFloat(row, idx[ColLon], n, ColLon)
		if err != nil {
			return nil, err
		}
		out = append(out, SSU{
			AOI:       normalizeID(fetcher.Cell(row, idx[ColAOI])),
			PlotID:    normalizeID(fetcher.Cell(row, idx[ColPlotID])),
			ObjectID:  normalizeID(fetcher.Cell(row, idx[ColObjectID])),
			Lat:       lat,
			Lon:       lon,
			LandCover: strings.TrimSpace(fetcher.Cell(row, idx[ColLandCover])),
		})
	}
	return out, nil
}
