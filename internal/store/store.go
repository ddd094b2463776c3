// Package store persists analysis runs and cached raster samples.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = eris.New("store: run not found")

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

// Run states.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded agreement analysis.
type Run struct {
	ID           string          `json:"id"`
	AOI          string          `json:"aoi"`
	PlotID       string          `json:"plot_id,omitempty"`
	ImageVersion string          `json:"image_version"`
	Status       RunStatus       `json:"status"`
	Report       json.RawMessage `json:"report,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewRun describes a run about to start.
type NewRun struct {
	AOI          string
	PlotID       string
	ImageVersion string
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	AOI    string    `json:"aoi,omitempty"`
	Status RunStatus `json:"status,omitempty"`
	// CreatedAfter keeps runs created at or after this instant when non-zero.
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

const defaultListLimit = 100

// Store defines the persistence interface for analysis runs and the raster
// sample cache. It satisfies raster.SampleCache.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run NewRun) (*Run, error)
	CompleteRun(ctx context.Context, runID string, report any) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Raster sample cache
	GetSamples(ctx context.Context, keys []string) (map[string]float64, error)
	PutSamples(ctx context.Context, values map[string]float64, ttl time.Duration) error
	DeleteExpiredSamples(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func marshalReport(report any) ([]byte, error) {
	if raw, ok := report.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(report)
	return data, eris.Wrap(err, "store: marshal report")
}

func errorText(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}
