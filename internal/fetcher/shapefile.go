package fetcher

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Coordinate columns appended to point shapefile attributes.
const (
	ShapeXColumn = "shape_x"
	ShapeYColumn = "shape_y"
)

// ReadShapefilePoints reads a point shapefile (or a .zip holding one) into a
// table of its attributes plus shape_x and shape_y. Non-point shapes are
// skipped.
func ReadShapefilePoints(path string) (Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "landcover-shp-*")
		if err != nil {
			return Table{}, eris.Wrap(err, "shapefile: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		files, err := ExtractZIP(path, dir)
		if err != nil {
			return Table{}, eris.Wrap(err, "shapefile: extract archive")
		}
		shpPath, ok := findByExt(files, ".shp")
		if !ok {
			return Table{}, eris.Errorf("shapefile: no .shp file in %s", filepath.Base(path))
		}
		path = shpPath
	}

	reader, err := shp.Open(path)
	if err != nil {
		return Table{}, eris.Wrap(err, "shapefile: open")
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	t := Table{Header: make([]string, 0, len(fields)+2), Rows: [][]string{}}
	for _, f := range fields {
		t.Header = append(t.Header, strings.TrimRight(f.String(), "\x00"))
	}
	t.Header = append(t.Header, ShapeXColumn, ShapeYColumn)

	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		row := make([]string, 0, len(t.Header))
		for i := range fields {
			row = append(row, strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00")))
		}
		row = append(row,
			strconv.FormatFloat(pt.X, 'f', -1, 64),
			strconv.FormatFloat(pt.Y, 'f', -1, 64),
		)
		t.Rows = append(t.Rows, row)
	}
	if err := reader.Err(); err != nil {
		return Table{}, eris.Wrap(err, "shapefile: read records")
	}

	if skipped > 0 {
		zap.L().Warn("shapefile: skipped non-point shapes",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return t, nil
}
