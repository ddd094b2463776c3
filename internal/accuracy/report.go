package accuracy

import (
	"github.com/sells-group/landcover-cli/internal/enrich"
)

// Report is the complete agreement summary for a set of records.
type Report struct {
	Total        int              `json:"total"`
	Agreement    float64          `json:"agreement"`
	MostAgreed   *Cell            `json:"most_agreed,omitempty"`
	MostConfused *Cell            `json:"most_confused,omitempty"`
	Matrix       *ConfusionMatrix `json:"matrix"`
}

// Agreement returns the fraction of records whose CEO and WorldCover classes
// match, or 0 when there are no records.
func Agreement(records []enrich.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	agreed := 0
	for _, r := range records {
		if r.Agrees() {
			agreed++
		}
	}
	return float64(agreed) / float64(len(records))
}

// Evaluate builds the confusion matrix and summary statistics. MostAgreed and
// MostConfused are nil when records is empty.
func Evaluate(records []enrich.Record) Report {
	m := NewConfusionMatrix(records)
	rep := Report{
		Total:     len(records),
		Agreement: Agreement(records),
		Matrix:    m,
	}
	if c, err := m.MostAgreed(); err == nil {
		rep.MostAgreed = &c
	}
	if c, err := m.MostConfused(); err == nil {
		rep.MostConfused = &c
	}
	return rep
}
