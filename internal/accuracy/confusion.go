// Package accuracy computes agreement statistics between harmonized CEO and
// WorldCover labels.
package accuracy

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

// ErrNotAvailable is returned for summary cells of a matrix built from no records.
var ErrNotAvailable = eris.New("accuracy: not available")

// Cell is one entry of the normalized confusion matrix.
type Cell struct {
	Truth     taxonomy.Class `json:"truth"`
	Predicted taxonomy.Class `json:"predicted"`
	Value     float64        `json:"value"`
}

// String renders the cell as "<truth> for <predicted>".
func (c Cell) String() string {
	return fmt.Sprintf("%s for %s", c.Truth, c.Predicted)
}

// ConfusionMatrix cross-tabulates CEO classes (rows) against WorldCover
// classes (columns) in the fixed taxonomy order. Normalized columns sum to 1,
// or are all zero when no record predicted that class.
type ConfusionMatrix struct {
	classes    []taxonomy.Class
	counts     *mat.Dense
	normalized *mat.Dense
	total      int
}

// NewConfusionMatrix tallies records. Records with a class outside the shared
// taxonomy are ignored.
func NewConfusionMatrix(records []enrich.Record) *ConfusionMatrix {
	classes := taxonomy.Classes()
	n := len(classes)
	counts := mat.NewDense(n, n, nil)

	total := 0
	for _, r := range records {
		i, j := taxonomy.Index(r.CEOClass), taxonomy.Index(r.RasterClass)
		if i < 0 || j < 0 {
			continue
		}
		counts.Set(i, j, counts.At(i, j)+1)
		total++
	}

	normalized := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		sum := mat.Sum(counts.ColView(j))
		if sum == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			normalized.Set(i, j, counts.At(i, j)/sum)
		}
	}

	return &ConfusionMatrix{classes: classes, counts: counts, normalized: normalized, total: total}
}

// Classes returns the row/column labels.
func (m *ConfusionMatrix) Classes() []taxonomy.Class {
	return append([]taxonomy.Class(nil), m.classes...)
}

// Total returns the number of tallied records.
func (m *ConfusionMatrix) Total() int { return m.total }

// Count returns the raw count for (truth, predicted).
func (m *ConfusionMatrix) Count(truth, predicted taxonomy.Class) int {
	i, j := taxonomy.Index(truth), taxonomy.Index(predicted)
	if i < 0 || j < 0 {
		return 0
	}
	return int(m.counts.At(i, j))
}

// Value returns the column-normalized rate for (truth, predicted).
func (m *ConfusionMatrix) Value(truth, predicted taxonomy.Class) float64 {
	i, j := taxonomy.Index(truth), taxonomy.Index(predicted)
	if i < 0 || j < 0 {
		return 0
	}
	return m.normalized.At(i, j)
}

// Normalized returns a copy of the normalized matrix as rows.
func (m *ConfusionMatrix) Normalized() [][]float64 {
	return rows(m.normalized)
}

// Counts returns a copy of the raw count matrix as rows.
func (m *ConfusionMatrix) Counts() [][]float64 {
	return rows(m.counts)
}

// ColumnSum returns the normalized column total for predicted: 1 if any
// record predicted it, otherwise 0.
func (m *ConfusionMatrix) ColumnSum(predicted taxonomy.Class) float64 {
	j := taxonomy.Index(predicted)
	if j < 0 {
		return 0
	}
	return mat.Sum(m.normalized.ColView(j))
}

// MostAgreed returns the diagonal cell with the highest normalized value.
// Ties go to the class earliest in the taxonomy order.
func (m *ConfusionMatrix) MostAgreed() (Cell, error) {
	if m.total == 0 {
		return Cell{}, ErrNotAvailable
	}
	best := -1
	for i := range m.classes {
		if best < 0 || m.normalized.At(i, i) > m.normalized.At(best, best) {
			best = i
		}
	}
	return m.cell(best, best), nil
}

// MostConfused returns the off-diagonal cell with the highest normalized
// value, scanning rows then columns in taxonomy order. Ties go to the cell
// reached first.
func (m *ConfusionMatrix) MostConfused() (Cell, error) {
	if m.total == 0 {
		return Cell{}, ErrNotAvailable
	}
	bi, bj := -1, -1
	for i := range m.classes {
		for j := range m.classes {
			if i == j {
				continue
			}
			if bi < 0 || m.normalized.At(i, j) > m.normalized.At(bi, bj) {
				bi, bj = i, j
			}
		}
	}
	return m.cell(bi, bj), nil
}

func (m *ConfusionMatrix) cell(i, j int) Cell {
	return Cell{Truth: m.classes[i], Predicted: m.classes[j], Value: m.normalized.At(i, j)}
}

func rows(d *mat.Dense) [][]float64 {
	r, _ := d.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, d)
	}
	return out
}

// MarshalJSON encodes the labels with both count and normalized rows.
func (m *ConfusionMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Classes    []taxonomy.Class `json:"classes"`
		Counts     [][]float64      `json:"counts"`
		Normalized [][]float64      `json:"normalized"`
	}{m.classes, m.Counts(), m.Normalized()})
}
