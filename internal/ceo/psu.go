package ceo

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-cli/internal/fetcher"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

// CoverValue is the percent cover of one CEO subclass on a plot.
type CoverValue struct {
	Column  string  `json:"column"`
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// PSU is one primary sampling unit, a surveyed plot.
type PSU struct {
	AOI       string       `json:"aoi"`
	PlotID    string       `json:"plot_id"`
	ObjectID  string       `json:"object_id,omitempty"`
	CenterLat float64      `json:"center_lat"`
	CenterLon float64      `json:"center_lon"`
	Cover     []CoverValue `json:"cover"`
}

// AOIKey implements Unit.
func (p PSU) AOIKey() string { return p.AOI }

// PlotKey implements Unit.
func (p PSU) PlotKey() string { return p.PlotID }

// coverColumn is a percent-cover column and its display label.
type coverColumn struct {
	index int
	name  string
	label string
}

// coverColumns finds the Land_Cover_Elements_<subclass> columns in header order.
func coverColumns(t fetcher.Table) []coverColumn {
	var out []coverColumn
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if !strings.HasPrefix(h, taxonomy.LandCoverColumnPrefix) {
			continue
		}
		label, ok := taxonomy.CEOLabelFromColumn(h)
		if !ok {
			label = strings.ReplaceAll(strings.TrimPrefix(h, taxonomy.LandCoverColumnPrefix), "_", " ")
		}
		out = append(out, coverColumn{index: i, name: h, label: label})
	}
	return out
}

// ParsePSU reads the primary sampling unit table. Blank cover cells count as
// zero; any other unparsable number is an error.
func ParsePSU(t fetcher.Table) ([]PSU, error) {
	idx, err := columns(t, ColAOI, ColPlotID, ColCenterLat, ColCenterLon)
	if err != nil {
		return nil, eris.Wrap(err, "ceo: parse psu")
	}
	objIdx := t.Index(ColObjectID)
	cover := coverColumns(t)

	out := make([]PSU, 0, len(t.Rows))
	for r, row := range t.Rows {
		n := r + 1
		lat, err := parseFloat(row, idx[ColCenterLat], n, ColCenterLat)
		if err != nil {
			return nil, err
		}
		lon, err := parseFloat(row, idx[ColCenterLon], n, ColCenterLon)
		if err != nil {
			return nil, err
		}

		p := PSU{
			AOI:       normalizeID(fetcher.Cell(row, idx[ColAOI])),
			PlotID:    normalizeID(fetcher.Cell(row, idx[ColPlotID])),
			ObjectID:  normalizeID(fetcher.Cell(row, objIdx)),
			CenterLat: lat,
			CenterLon: lon,
			Cover:     make([]CoverValue, 0, len(cover)),
		}
		for _, c := range cover {
			v := 0.0
			if strings.TrimSpace(fetcher.Cell(row, c.index)) != "" {
				if v, err = parseFloat(row, c.index, n, c.name); err != nil {
					return nil, err
				}
			}
			p.Cover = append(p.Cover, CoverValue{Column: c.name, Label: c.label, Percent: v})
		}
		out = append(out, p)
	}
	return out, nil
}
