// Package ceo parses Collect Earth Online survey tables and derives the
// per-AOI views the analysis works on.
package ceo

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-cli/internal/fetcher"
)

// Survey table columns.
const (
	ColAOI       = "AOI_Number"
	ColPlotID    = "plotid"
	ColObjectID  = "ObjectId"
	ColLat       = "lat"
	ColLon       = "lon"
	ColCenterLat = "center_lat"
	ColCenterLon = "center_lon"
	ColLandCover = "Land_Cover_Elements"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = eris.New("ceo: missing column")

// columns resolves required column names to indexes.
func columns(t fetcher.Table, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	var missing []string
	for _, n := range names {
		i := t.Index(n)
		if i < 0 {
			missing = append(missing, n)
			continue
		}
		idx[n] = i
	}
	if len(missing) > 0 {
		return nil, eris.Wrapf(ErrMissingColumn, "%s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// parseFloat parses a numeric cell. Row numbers are 1-based data rows.
func parseFloat(row []string, i, rowNum int, col string) (float64, error) {
	raw := strings.TrimSpace(fetcher.Cell(row, i))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "ceo: row %d: %s %q", rowNum, col, raw)
	}
	return v, nil
}

// normalizeID renders integral numeric IDs without a fraction so "12.0" and
// "12" join.
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return raw
}

// lessNatural orders numeric strings numerically and everything else
// lexically, numbers first.
func lessNatural(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
