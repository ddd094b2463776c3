package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/landcover-cli/internal/monitoring"
	"github.com/sells-group/landcover-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect agreement run history",
	Long:  "Commands for listing, viewing, and summarizing recorded agreement analyses.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agreement runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		aoi, _ := cmd.Flags().GetString("aoi")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			AOI:    aoi,
			Status: store.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return writeJSON(os.Stdout, run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		aoi, _ := cmd.Flags().GetString("aoi")
		runs, err := st.ListRuns(ctx, store.RunFilter{AOI: aoi, Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

// -- runs check --

var runsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate run health and send any alerts",
	Long:  "Collects run metrics over the monitoring lookback window, evaluates alert thresholds, and posts triggered alerts to the configured webhook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rep, err := newChecker(st).Check(ctx)
		if err != nil {
			return eris.Wrap(err, "runs check")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, rep)
		}
		formatCheckReport(os.Stdout, rep)
		return nil
	},
}

// newChecker builds the run health checker from config.
func newChecker(runs monitoring.RunLister) *monitoring.Checker {
	mc := cfg.Monitoring
	stale := time.Duration(mc.StaleRunMinutes) * time.Minute
	return monitoring.NewChecker(monitoring.NewCollector(runs, stale), monitoring.NewAlerter(mc), mc)
}

func init() {
	runsCheckCmd.Flags().Bool("json", false, "print the report as JSON")

	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().String("aoi", "", "filter by AOI")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().String("aoi", "", "filter by AOI")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCheckCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total        int
	Complete     int
	Failed       int
	Running      int
	AvgDurSecs   float64
	AvgAgreement float64
}

// computeRunStats computes aggregate statistics from a list of runs. The mean
// agreement counts completed runs that compared at least one point.
func computeRunStats(runs []store.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var agreementSum float64
	var agreementCount int

	for _, r := range runs {
		switch r.Status {
		case store.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			if a, ok := monitoring.RunAgreement(r.Report); ok {
				agreementSum += a
				agreementCount++
			}
		case store.RunStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
	}

	if s.Complete > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(s.Complete)
	}
	if agreementCount > 0 {
		s.AvgAgreement = agreementSum / float64(agreementCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tAOI\tPLOT\tIMAGE\tSTATUS\tAGREEMENT\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---\t----\t-----\t------\t---------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		agreement := ""
		if a, ok := monitoring.RunAgreement(r.Report); ok {
			agreement = fmt.Sprintf("%.1f%%", a*100)
		}
		plot := r.PlotID
		if plot == "" {
			plot = "all"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.AOI,
			plot,
			r.ImageVersion,
			r.Status,
			agreement,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	if s.AvgAgreement > 0 {
		_, _ = fmt.Fprintf(w, "Avg agreement:\t%.1f%%\n", s.AvgAgreement*100)
	}
	_ = w.Flush()
}

// formatCheckReport writes a run health snapshot and its alerts to w.
func formatCheckReport(out io.Writer, rep *monitoring.Report) {
	snap := rep.Snapshot
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Runs:\t%d (%d complete, %d failed, %d running, %d stale)\n",
		snap.RunsTotal, snap.RunsComplete, snap.RunsFailed, snap.RunsRunning, snap.RunsStale)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", snap.FailRate*100)
	if snap.ScoredRuns > 0 {
		_, _ = fmt.Fprintf(w, "Mean agreement:\t%.1f%%\n", snap.AvgAgreement*100)
		_, _ = fmt.Fprintf(w, "Lowest agreement:\t%.1f%% (AOI %s)\n", snap.MinAgreement*100, snap.WorstAOI)
	}
	_ = w.Flush()

	if len(rep.Alerts) == 0 {
		_, _ = fmt.Fprintln(out, "No alerts.")
		return
	}
	_, _ = fmt.Fprintf(out, "\n%d alert(s), %d sent:\n", len(rep.Alerts), rep.Sent)
	for _, a := range rep.Alerts {
		_, _ = fmt.Fprintf(out, "  [%s] %s\n", a.Severity, a.Message)
	}
}
