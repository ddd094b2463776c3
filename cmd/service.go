package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/accuracy"
	"github.com/sells-group/landcover-cli/internal/ceo"
	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/fetcher"
	"github.com/sells-group/landcover-cli/internal/photos"
	"github.com/sells-group/landcover-cli/internal/raster"
	"github.com/sells-group/landcover-cli/internal/store"
)

// runWriteTimeout bounds the final run status write, which outlives the
// request context so cancelled requests do not leave runs running.
const runWriteTimeout = 5 * time.Second

// errUnknownAOI is returned when an AOI has no survey rows.
var errUnknownAOI = eris.New("aoi not found")

// runRecorder is the part of store.Store the service writes run history to.
type runRecorder interface {
	CreateRun(ctx context.Context, run store.NewRun) (*store.Run, error)
	CompleteRun(ctx context.Context, runID string, report any) error
	FailRun(ctx context.Context, runID string, cause error) error
}

// service answers the questions the CLI and HTTP API ask of one dataset.
type service struct {
	ds           *dataset
	pipeline     *enrich.Pipeline
	image        raster.Image
	matcher      *photos.Matcher
	runs         runRecorder // may be nil
	plannedPlots int
}

// agreementResult is the agreement analysis for an AOI, optionally narrowed
// to one plot.
type agreementResult struct {
	RunID   string          `json:"run_id,omitempty"`
	AOI     string          `json:"aoi"`
	PlotID  string          `json:"plot_id,omitempty"`
	Image   raster.Image    `json:"image"`
	Points  int             `json:"points"`
	Report  accuracy.Report `json:"report"`
	Records []enrich.Record `json:"records,omitempty"`
}

// AOIs returns the surveyed AOIs in natural order.
func (s *service) AOIs() []string {
	return ceo.AOIs(s.ds.PSU)
}

// Plots returns the SSU plot IDs inside aoi.
func (s *service) Plots(aoi string) ([]string, error) {
	if err := s.checkAOI(aoi); err != nil {
		return nil, err
	}
	return ceo.PlotIDs(ceo.FilterAOI(s.ds.SSU, aoi)), nil
}

func (s *service) checkAOI(aoi string) error {
	if len(ceo.FilterAOI(s.ds.PSU, aoi)) == 0 && len(ceo.FilterAOI(s.ds.SSU, aoi)) == 0 {
		return eris.Wrapf(errUnknownAOI, "aoi %s", aoi)
	}
	return nil
}

// Summary describes survey progress and cover composition in aoi.
func (s *service) Summary(aoi string) (ceo.Summary, error) {
	if err := s.checkAOI(aoi); err != nil {
		return ceo.Summary{}, err
	}
	return ceo.Summarize(ceo.FilterAOI(s.ds.PSU, aoi), s.plannedPlots), nil
}

// records runs the enrichment pipeline over the SSU points of aoi and plot.
func (s *service) records(ctx context.Context, aoi, plot string) ([]enrich.Record, int, error) {
	if err := s.checkAOI(aoi); err != nil {
		return nil, 0, err
	}
	ssu := ceo.FilterAOI(s.ds.SSU, aoi)
	if plot != "" {
		ssu = ceo.FilterPlot(ssu, plot)
	}
	points := ceo.SamplePoints(ssu)
	records, err := s.pipeline.Enrich(ctx, points, s.image)
	return records, len(points), err
}

// Agreement samples the raster for aoi (and plot, when non-empty) and
// evaluates agreement. Each call is recorded as a run when a recorder is set.
func (s *service) Agreement(ctx context.Context, aoi, plot string) (*agreementResult, error) {
	res := &agreementResult{AOI: aoi, PlotID: plot, Image: s.image}

	if s.runs != nil {
		run, err := s.runs.CreateRun(ctx, store.NewRun{AOI: aoi, PlotID: plot, ImageVersion: s.image.Version})
		if err != nil {
			return nil, eris.Wrap(err, "create run")
		}
		res.RunID = run.ID
	}

	records, points, err := s.records(ctx, aoi, plot)
	if err != nil {
		s.failRun(ctx, res.RunID, err)
		return nil, err
	}
	res.Points = points
	res.Records = records
	res.Report = accuracy.Evaluate(records)

	if s.runs != nil {
		wctx, cancel := runWriteContext(ctx)
		defer cancel()
		if err := s.runs.CompleteRun(wctx, res.RunID, res.Report); err != nil {
			return nil, eris.Wrap(err, "complete run")
		}
	}

	zap.L().Info("agreement evaluated",
		zap.String("aoi", aoi),
		zap.String("plot", plot),
		zap.Int("points", points),
		zap.Int("records", len(records)),
		zap.Float64("agreement", res.Report.Agreement),
	)
	return res, nil
}

func (s *service) failRun(ctx context.Context, runID string, cause error) {
	if s.runs == nil || runID == "" {
		return
	}
	wctx, cancel := runWriteContext(ctx)
	defer cancel()
	if err := s.runs.FailRun(wctx, runID, cause); err != nil {
		zap.L().Warn("record failed run", zap.String("run_id", runID), zap.Error(err))
	}
}

func runWriteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), runWriteTimeout)
}

// Grid returns the CEO-colored cell squares around the SSU points of a plot.
func (s *service) Grid(ctx context.Context, aoi, plot string) (ceo.Grid, error) {
	records, _, err := s.records(ctx, aoi, plot)
	if err != nil {
		return ceo.Grid{}, err
	}
	return ceo.PlotGrid(records, ceo.DefaultCellMeters)
}

// Photos matches the centroid of plot inside aoi to the nearest GLOBE
// observation. Plot IDs repeat across AOIs, so the centroid is resolved
// within aoi only.
func (s *service) Photos(aoi, plot string) (photos.Result, error) {
	psu := ceo.FilterAOI(s.ds.PSU, aoi)
	if len(psu) == 0 {
		return photos.Result{}, eris.Wrapf(errUnknownAOI, "aoi %s", aoi)
	}
	return s.matcher.Match(plot, ceo.Centroids(psu), s.ds.Observations)
}

// Export returns the raw rows of kind for aoi and the download filename.
func (s *service) Export(kind ceo.Kind, aoi string) (fetcher.Table, string, error) {
	if err := s.checkAOI(aoi); err != nil {
		return fetcher.Table{}, "", err
	}
	src := s.ds.PSUTable
	if kind == ceo.KindSSU {
		src = s.ds.SSUTable
	}
	return ceo.AOITable(src, aoi), ceo.ExportFilename(kind, aoi), nil
}
