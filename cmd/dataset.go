package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/landcover-cli/internal/ceo"
	"github.com/sells-group/landcover-cli/internal/fetcher"
	"github.com/sells-group/landcover-cli/internal/photos"
)

type layerLoader interface {
	Layer(ctx context.Context, itemID string) (fetcher.Table, error)
}

type tableOpener interface {
	Open(ctx context.Context, src string) (fetcher.Table, error)
}

type observationSource interface {
	LandCover(ctx context.Context, start, end time.Time) ([]photos.Observation, error)
}

// datasetLoader resolves dataset sources. Layers serves portal items, Files
// serves paths and URLs, Photos serves ground observations.
type datasetLoader struct {
	Layers layerLoader
	Files  tableOpener
	Photos observationSource
}

// tableSource is a portal item or, when Location is set, a file or URL.
type tableSource struct {
	Location string
	ItemID   string
}

type datasetSources struct {
	PSU        tableSource
	SSU        tableSource
	Photos     bool
	PhotoStart time.Time
	PhotoEnd   time.Time
}

// dataset is the immutable survey state one command or server works from.
type dataset struct {
	PSUTable     fetcher.Table
	SSUTable     fetcher.Table
	PSU          []ceo.PSU
	SSU          []ceo.SSU
	Observations []photos.Observation
}

func (l datasetLoader) table(ctx context.Context, src tableSource) (fetcher.Table, error) {
	if src.Location != "" {
		return l.Files.Open(ctx, src.Location)
	}
	return l.Layers.Layer(ctx, src.ItemID)
}

// loadDataset fetches the PSU and SSU tables and, if requested, the GLOBE
// observations concurrently. Any failure fails the whole load.
func loadDataset(ctx context.Context, l datasetLoader, src datasetSources) (*dataset, error) {
	var psuTable, ssuTable fetcher.Table
	var obs []photos.Observation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := l.table(gctx, src.PSU)
		if err != nil {
			return eris.Wrap(err, "load psu")
		}
		psuTable = t
		return nil
	})
	g.Go(func() error {
		t, err := l.table(gctx, src.SSU)
		if err != nil {
			return eris.Wrap(err, "load ssu")
		}
		ssuTable = t
		return nil
	})
	if src.Photos {
		g.Go(func() error {
			o, err := l.Photos.LandCover(gctx, src.PhotoStart, src.PhotoEnd)
			if err != nil {
				return eris.Wrap(err, "load photos")
			}
			obs = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return newDataset(psuTable, ssuTable, obs)
}

// newDataset parses the raw tables.
func newDataset(psuTable, ssuTable fetcher.Table, obs []photos.Observation) (*dataset, error) {
	psu, err := ceo.ParsePSU(psuTable)
	if err != nil {
		return nil, eris.Wrap(err, "parse psu")
	}
	ssu, err := ceo.ParseSSU(ssuTable)
	if err != nil {
		return nil, eris.Wrap(err, "parse ssu")
	}

	zap.L().Info("dataset loaded",
		zap.Int("psu", len(psu)),
		zap.Int("ssu", len(ssu)),
		zap.Int("observations", len(obs)),
	)

	return &dataset{
		PSUTable:     psuTable,
		SSUTable:     ssuTable,
		PSU:          psu,
		SSU:          ssu,
		Observations: obs,
	}, nil
}
