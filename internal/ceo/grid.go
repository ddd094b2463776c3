package ceo

import (
	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/geodesy"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

// DefaultCellMeters is the half-width of the square drawn around each SSU point.
const DefaultCellMeters = 4.0

// GridCell is the square around one labeled point, colored by its CEO class.
type GridCell struct {
	ID       string         `json:"id"`
	SouthLat float64        `json:"south_lat"`
	WestLon  float64        `json:"west_lon"`
	NorthLat float64        `json:"north_lat"`
	EastLon  float64        `json:"east_lon"`
	Class    taxonomy.Class `json:"class"`
	Color    string         `json:"color"`
}

// Grid is the set of cells for a plot and the center of their extent.
type Grid struct {
	Cells     []GridCell `json:"cells"`
	CenterLat float64    `json:"center_lat"`
	CenterLon float64    `json:"center_lon"`
}

// PlotGrid builds the cell squares for enriched records.
func PlotGrid(records []enrich.Record, halfMeters float64) (Grid, error) {
	if halfMeters <= 0 {
		halfMeters = DefaultCellMeters
	}
	g := Grid{Cells: make([]GridCell, 0, len(records))}
	if len(records) == 0 {
		return g, nil
	}

	minLat, minLon := records[0].Lat, records[0].Lon
	maxLat, maxLon := minLat, minLon
	for _, r := range records {
		box, err := geodesy.NewBoundingBox(r.Lat, r.Lon, halfMeters)
		if err != nil {
			return Grid{}, err
		}
		sLat, wLon := box.SouthWest()
		nLat, eLon := box.NorthEast()
		g.Cells = append(g.Cells, GridCell{
			ID:       r.ID,
			SouthLat: sLat,
			WestLon:  wLon,
			NorthLat: nLat,
			EastLon:  eLon,
			Class:    r.CEOClass,
			Color:    r.CEOClass.Color(),
		})
		minLat, maxLat = min(minLat, sLat), max(maxLat, nLat)
		minLon, maxLon = min(minLon, wLon), max(maxLon, eLon)
	}
	g.CenterLat = (minLat + maxLat) / 2
	g.CenterLon = (minLon + maxLon) / 2
	return g, nil
}
