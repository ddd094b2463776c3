package ceo

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-cli/internal/fetcher"
)

// Kind names a survey table.
type Kind string

// Survey tables.
const (
	KindPSU Kind = "psu"
	KindSSU Kind = "ssu"
)

// ParseKind accepts "psu" or "ssu" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPSU, KindSSU:
		return k, nil
	default:
		return "", eris.Errorf("ceo: unknown table kind %q", s)
	}
}

// ExportFilename returns the download name for one AOI's table. The AOI is
// normalized, so "2.0" and "2" name the same file.
func ExportFilename(kind Kind, aoi string) string {
	return fmt.Sprintf("CEO %s-%s.csv", strings.ToUpper(string(kind)), normalizeID(aoi))
}

// ExportCSV writes t as CSV.
func ExportCSV(w io.Writer, t fetcher.Table) error {
	return eris.Wrap(fetcher.WriteCSV(w, t), "ceo: export csv")
}

// AOITable keeps the rows of t belonging to aoi.
func AOITable(t fetcher.Table, aoi string) fetcher.Table {
	i := t.Index(ColAOI)
	aoi = normalizeID(aoi)
	return t.Filter(func(row []string) bool {
		return i >= 0 && normalizeID(fetcher.Cell(row, i)) == aoi
	})
}
