package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/config"
	"github.com/sells-group/landcover-cli/internal/enrich"
	"github.com/sells-group/landcover-cli/internal/fetcher"
	"github.com/sells-group/landcover-cli/internal/photos"
	"github.com/sells-group/landcover-cli/internal/raster"
	"github.com/sells-group/landcover-cli/internal/store"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
	"github.com/sells-group/landcover-cli/pkg/arcgis"
	"github.com/sells-group/landcover-cli/pkg/globe"
)

// appEnv holds the clients and store needed by the analysis commands.
type appEnv struct {
	Store  store.Store
	Raster *raster.Client
	Opener *fetcher.Opener
	ArcGIS *arcgis.Client
	Globe  *globe.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode, opens and migrates the store, and builds
// the remote clients. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	retry := cfg.Retry.Policy()

	rasterOpts := []raster.Option{
		raster.WithHTTPClient(&http.Client{Timeout: cfg.Raster.Timeout()}),
		raster.WithRetry(retry),
		raster.WithMaxBatch(cfg.Raster.MaxBatch),
	}
	if cfg.Raster.RateLimit > 0 {
		rasterOpts = append(rasterOpts, raster.WithRateLimit(cfg.Raster.RateLimit))
	}
	if cfg.Raster.APIKey != "" {
		rasterOpts = append(rasterOpts, raster.WithAPIKey(cfg.Raster.APIKey))
	}

	arcgisOpts := []arcgis.Option{
		arcgis.WithPortalURL(cfg.ArcGIS.PortalURL),
		arcgis.WithPageSize(cfg.ArcGIS.PageSize),
		arcgis.WithRetry(retry),
	}
	if cfg.ArcGIS.RateLimit > 0 {
		arcgisOpts = append(arcgisOpts, arcgis.WithRateLimit(cfg.ArcGIS.RateLimit))
	}

	globeOpts := []globe.Option{
		globe.WithBaseURL(cfg.Globe.BaseURL),
		globe.WithRetry(retry),
	}
	if cfg.Globe.RateLimit > 0 {
		globeOpts = append(globeOpts, globe.WithRateLimit(cfg.Globe.RateLimit))
	}

	opener := fetcher.NewOpener(fetcher.HTTPOptions{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout(),
		Retry:         retry,
		RatePerSecond: cfg.Fetch.RateLimit,
	}, fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout()})
	opener.XLSX = fetcher.XLSXOptions{SheetName: cfg.Fetch.SheetName, SkipRows: cfg.Fetch.SkipRows}

	return &appEnv{
		Store:  st,
		Raster: raster.NewClient(cfg.Raster.BaseURL, rasterOpts...),
		Opener: opener,
		ArcGIS: arcgis.NewClient(arcgisOpts...),
		Globe:  globe.NewClient(globeOpts...),
	}, nil
}

// initStore opens the configured store backend without migrating it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newPipeline builds the enrichment pipeline over sampler, applying taxonomy
// overrides and the in-memory result cache from config.
func newPipeline(sampler raster.Sampler, analysis config.AnalysisConfig) (*enrich.Pipeline, error) {
	var overrides *taxonomy.Overrides
	if analysis.OverridesPath != "" {
		o, err := taxonomy.LoadOverrides(analysis.OverridesPath)
		if err != nil {
			return nil, err
		}
		overrides = o
		zap.L().Info("taxonomy overrides loaded",
			zap.String("path", analysis.OverridesPath),
			zap.Int("ceo", len(o.CEO)),
			zap.Int("worldcover", len(o.WorldCover)),
		)
	}
	ceoTable, wcTable := overrides.Tables()

	opts := []enrich.Option{
		enrich.WithTables(ceoTable, wcTable),
		enrich.WithScale(analysis.Scale),
	}
	if analysis.CacheEntries > 0 {
		opts = append(opts, enrich.WithCache(enrich.NewMemoryCache(analysis.CacheEntries)))
	}
	return enrich.New(sampler, opts...), nil
}

// rasterImage is the configured classification image.
func rasterImage() raster.Image {
	img := raster.WorldCover()
	if cfg.Raster.ImageAsset != "" {
		img.Asset = cfg.Raster.ImageAsset
	}
	if cfg.Raster.ImageVersion != "" {
		img.Version = cfg.Raster.ImageVersion
	}
	if cfg.Raster.Band != "" {
		img.Band = cfg.Raster.Band
	}
	return img
}

// newService loads the datasets and assembles the analysis service. Photos
// are loaded only when withPhotos is set.
func newService(ctx context.Context, env *appEnv, withPhotos bool) (*service, error) {
	var sampler raster.Sampler = env.Raster
	if ttl := cfg.Store.SampleTTL(); ttl > 0 {
		sampler = raster.NewCachedSampler(env.Raster, env.Store, ttl)
	}

	pipeline, err := newPipeline(sampler, cfg.Analysis)
	if err != nil {
		return nil, err
	}

	src := datasetSources{
		PSU:    tableSource{Location: cfg.ArcGIS.PSUSource, ItemID: cfg.ArcGIS.PSUItemID},
		SSU:    tableSource{Location: cfg.ArcGIS.SSUSource, ItemID: cfg.ArcGIS.SSUItemID},
		Photos: withPhotos,
	}
	if withPhotos {
		start, end, err := cfg.Globe.Window()
		if err != nil {
			return nil, err
		}
		src.PhotoStart, src.PhotoEnd = start, end
	}

	ds, err := loadDataset(ctx, datasetLoader{Layers: env.ArcGIS, Files: env.Opener, Photos: env.Globe}, src)
	if err != nil {
		return nil, err
	}

	return &service{
		ds:           ds,
		pipeline:     pipeline,
		image:        rasterImage(),
		matcher:      photos.NewMatcher(cfg.Analysis.RadiusMeters),
		runs:         env.Store,
		plannedPlots: cfg.Analysis.PlannedPlots,
	}, nil
}
