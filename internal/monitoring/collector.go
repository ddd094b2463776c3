// Package monitoring watches agreement run history and raises webhook alerts
// when runs start failing, stall, or agree poorly with the reference survey.
package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landcover-cli/internal/store"
)

// maxRunsScanned caps how many runs one collection reads.
const maxRunsScanned = 10000

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	RunsStale    int     `json:"runs_stale"`
	FailRate     float64 `json:"fail_rate"`

	// Agreement over completed runs that compared at least one point.
	ScoredRuns   int     `json:"scored_runs"`
	AvgAgreement float64 `json:"avg_agreement"`
	MinAgreement float64 `json:"min_agreement"`
	WorstAOI     string  `json:"worst_aoi,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	runs       RunLister
	staleAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a collector. Runs still running after staleAfter
// count as stale; zero disables the check.
func NewCollector(runs RunLister, staleAfter time.Duration) *Collector {
	return &Collector{
		runs:       runs,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunAgreement reads the agreement rate from a stored report. ok is false
// when the report is missing, unreadable, or compared no points.
func RunAgreement(raw json.RawMessage) (agreement float64, ok bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var rep struct {
		Total     int     `json:"total"`
		Agreement float64 `json:"agreement"`
	}
	if err := json.Unmarshal(raw, &rep); err != nil || rep.Total == 0 {
		return 0, false
	}
	return rep.Agreement, true
}

// Collect gathers a snapshot over runs created in the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        maxRunsScanned,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var agreementSum float64
	for _, r := range runs {
		switch r.Status {
		case store.RunStatusComplete:
			snap.RunsComplete++
			a, ok := RunAgreement(r.Report)
			if !ok {
				continue
			}
			if snap.ScoredRuns == 0 || a < snap.MinAgreement {
				snap.MinAgreement = a
				snap.WorstAOI = r.AOI
			}
			agreementSum += a
			snap.ScoredRuns++
		case store.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsRunning++
			if c.staleAfter > 0 && now.Sub(r.CreatedAt) > c.staleAfter {
				snap.RunsStale++
			}
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.ScoredRuns > 0 {
		snap.AvgAgreement = agreementSum / float64(snap.ScoredRuns)
	}
	return snap, nil
}
