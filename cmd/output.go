package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/landcover-cli/internal/ceo"
	"github.com/sells-group/landcover-cli/internal/photos"
)

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatAgreement writes the agreement report and confusion matrix to w.
func formatAgreement(out io.Writer, res *agreementResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	scope := "AOI " + res.AOI
	if res.PlotID != "" {
		scope += ", plot " + res.PlotID
	}
	_, _ = fmt.Fprintf(w, "Scope:\t%s\n", scope)
	_, _ = fmt.Fprintf(w, "Image:\t%s (%s)\n", res.Image.Asset, res.Image.Version)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", truncateID(res.RunID))
	}
	_, _ = fmt.Fprintf(w, "Points:\t%d\n", res.Points)
	_, _ = fmt.Fprintf(w, "Compared:\t%d\n", res.Report.Total)
	_, _ = fmt.Fprintf(w, "Agreement:\t%.1f%%\n", res.Report.Agreement*100)
	if c := res.Report.MostAgreed; c != nil {
		_, _ = fmt.Fprintf(w, "Most agreed:\t%s (%.2f)\n", c.Truth, c.Value)
	} else {
		_, _ = fmt.Fprintln(w, "Most agreed:\tn/a")
	}
	if c := res.Report.MostConfused; c != nil {
		_, _ = fmt.Fprintf(w, "Most confused:\t%s (%.2f)\n", c, c.Value)
	} else {
		_, _ = fmt.Fprintln(w, "Most confused:\tn/a")
	}
	_ = w.Flush()

	m := res.Report.Matrix
	if m == nil || m.Total() == 0 {
		return
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Confusion matrix (rows CEO, columns WorldCover, column-normalized):")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	classes := m.Classes()
	_, _ = fmt.Fprint(w, "\t")
	for _, c := range classes {
		_, _ = fmt.Fprintf(w, "%s\t", c)
	}
	_, _ = fmt.Fprintln(w)
	for i, row := range m.Normalized() {
		_, _ = fmt.Fprintf(w, "%s\t", classes[i])
		for _, v := range row {
			_, _ = fmt.Fprintf(w, "%.2f\t", v)
		}
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}

// formatSummary writes survey progress and mean cover for an AOI.
func formatSummary(out io.Writer, aoi string, s ceo.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "AOI:\t%s\n", aoi)
	_, _ = fmt.Fprintf(w, "Plots completed:\t%d\n", s.Completed)
	_, _ = fmt.Fprintf(w, "Plots left:\t%d\n", s.Remaining)
	if s.Primary != "" {
		_, _ = fmt.Fprintf(w, "Primary classification:\t%s\n", s.Primary)
	}
	_ = w.Flush()

	if len(s.Cover) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COVER\tMEAN %\tCOLOR")
	for _, c := range s.Cover {
		_, _ = fmt.Fprintf(w, "%s\t%.1f\t%s\n", c.Label, c.Mean, c.Color)
	}
	_ = w.Flush()
}

// formatPhotos writes the photo match for a plot.
func formatPhotos(out io.Writer, plot string, r photos.Result) {
	if !r.Found || len(r.Photos) == 0 {
		_, _ = fmt.Fprintf(out, "No photos found near plot %s.\n", plot)
		return
	}
	_, _ = fmt.Fprintf(out, "Plot %s: observation at %.6f, %.6f (%.1f m)\n", plot, r.Lat, r.Lon, r.DistanceMeters)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DIRECTION\tURL")
	for _, p := range r.Photos {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", p.DirectionLabel(), p.URL)
	}
	_ = w.Flush()
}

// aoiPlots is one AOI and its surveyed plots.
type aoiPlots struct {
	AOI   string   `json:"aoi"`
	Plots []string `json:"plots"`
}

// formatAOIs writes each AOI with its plot count and IDs.
func formatAOIs(out io.Writer, aois []aoiPlots) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AOI\tPLOTS\tIDS")
	for _, a := range aois {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", a.AOI, len(a.Plots), joinTruncated(a.Plots, 10))
	}
	_ = w.Flush()
}

func joinTruncated(ids []string, n int) string {
	s := ""
	for i, id := range ids {
		if i == n {
			return s + fmt.Sprintf(", ... (+%d)", len(ids)-n)
		}
		if i > 0 {
			s += ", "
		}
		s += id
	}
	return s
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
