package ceo

import "github.com/sells-group/landcover-cli/internal/taxonomy"

// DefaultPlannedPlots is the number of plots surveyed per AOI.
const DefaultPlannedPlots = 37

// CoverShare is the mean percent cover of one subclass across an AOI.
type CoverShare struct {
	Label string  `json:"label"`
	Mean  float64 `json:"mean"`
	Color string  `json:"color"`
}

// Summary describes survey progress and composition for a set of plots.
type Summary struct {
	Completed    int          `json:"completed"`
	Remaining    int          `json:"remaining"`
	Cover        []CoverShare `json:"cover"`
	Primary      string       `json:"primary,omitempty"`
	PrimaryColor string       `json:"primary_color,omitempty"`
}

// Summarize computes plot counts and mean percent cover per subclass. Only
// subclasses with a positive mean are listed, in column order; the primary
// classification is the largest mean, the first one on ties. Remaining never
// goes below zero.
func Summarize(psu []PSU, plannedPlots int) Summary {
	if plannedPlots <= 0 {
		plannedPlots = DefaultPlannedPlots
	}
	s := Summary{
		Completed: len(psu),
		Remaining: max(plannedPlots-len(psu), 0),
		Cover:     []CoverShare{},
	}
	if len(psu) == 0 {
		return s
	}

	var order []string
	sums := make(map[string]float64)
	for _, p := range psu {
		for _, c := range p.Cover {
			if _, ok := sums[c.Label]; !ok {
				order = append(order, c.Label)
			}
			sums[c.Label] += c.Percent
		}
	}

	best := -1
	for _, label := range order {
		mean := sums[label] / float64(len(psu))
		if mean <= 0 {
			continue
		}
		s.Cover = append(s.Cover, CoverShare{Label: label, Mean: mean, Color: taxonomy.CEOColor(label)})
		if best < 0 || mean > s.Cover[best].Mean {
			best = len(s.Cover) - 1
		}
	}
	if best >= 0 {
		s.Primary = s.Cover[best].Label
		s.PrimaryColor = s.Cover[best].Color
	}
	return s
}
