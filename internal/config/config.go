package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/landcover-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	ArcGIS     ArcGISConfig     `yaml:"arcgis" mapstructure:"arcgis"`
	Globe      GlobeConfig      `yaml:"globe" mapstructure:"globe"`
	Raster     RasterConfig     `yaml:"raster" mapstructure:"raster"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run history and sample cache backend.
type StoreConfig struct {
	Driver         string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL    string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath     string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns       int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns       int32  `yaml:"min_conns" mapstructure:"min_conns"`
	SampleTTLHours int    `yaml:"sample_ttl_hours" mapstructure:"sample_ttl_hours"`
}

// SampleTTL is the lifetime of cached raster samples. Zero disables the cache.
func (c StoreConfig) SampleTTL() time.Duration {
	return time.Duration(c.SampleTTLHours) * time.Hour
}

// ArcGISConfig locates the CEO PSU and SSU layers. PSUSource and SSUSource,
// when set, replace the hosted layers with a local path or URL.
type ArcGISConfig struct {
	PortalURL string  `yaml:"portal_url" mapstructure:"portal_url"`
	PSUItemID string  `yaml:"psu_item_id" mapstructure:"psu_item_id"`
	SSUItemID string  `yaml:"ssu_item_id" mapstructure:"ssu_item_id"`
	PSUSource string  `yaml:"psu_source" mapstructure:"psu_source"`
	SSUSource string  `yaml:"ssu_source" mapstructure:"ssu_source"`
	PageSize  int     `yaml:"page_size" mapstructure:"page_size"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GlobeConfig configures the GLOBE land cover observation API.
type GlobeConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	StartDate string  `yaml:"start_date" mapstructure:"start_date"`
	EndDate   string  `yaml:"end_date" mapstructure:"end_date"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Window parses the configured observation date range.
func (c GlobeConfig) Window() (start, end time.Time, err error) {
	start, err = time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return start, end, eris.Wrap(err, "config: globe start_date")
	}
	end, err = time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return start, end, eris.Wrap(err, "config: globe end_date")
	}
	if end.Before(start) {
		return start, end, eris.Errorf("config: globe end_date %s before start_date %s", c.EndDate, c.StartDate)
	}
	return start, end, nil
}

// RasterConfig configures the raster analysis engine.
type RasterConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxBatch     int     `yaml:"max_batch" mapstructure:"max_batch"`
	ImageAsset   string  `yaml:"image_asset" mapstructure:"image_asset"`
	ImageVersion string  `yaml:"image_version" mapstructure:"image_version"`
	Band         string  `yaml:"band" mapstructure:"band"`
}

// Timeout is the per-request engine deadline.
func (c RasterConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// FetchConfig configures tabular downloads over HTTP and FTP.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	SheetName   string  `yaml:"sheet_name" mapstructure:"sheet_name"`
	SkipRows    int     `yaml:"skip_rows" mapstructure:"skip_rows"`
}

// Timeout is the per-download deadline.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnalysisConfig holds agreement and photo matching parameters.
type AnalysisConfig struct {
	RadiusMeters  float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	PlannedPlots  int     `yaml:"planned_plots" mapstructure:"planned_plots"`
	Scale         float64 `yaml:"scale" mapstructure:"scale"`
	OverridesPath string  `yaml:"overrides_path" mapstructure:"overrides_path"`
	CacheEntries  int     `yaml:"cache_entries" mapstructure:"cache_entries"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RequestTimeout bounds each API request.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// RetryConfig configures backoff for remote data services.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// Policy converts the configured values into a resilience.RetryConfig.
func (c RetryConfig) Policy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffMs, c.MaxBackoffMs)
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	AgreementFloor       float64 `yaml:"agreement_floor" mapstructure:"agreement_floor"`
	StaleRunMinutes      int     `yaml:"stale_run_minutes" mapstructure:"stale_run_minutes"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LANDCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "landcover.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.sample_ttl_hours", 720)
	v.SetDefault("arcgis.portal_url", "https://www.arcgis.com")
	v.SetDefault("arcgis.psu_item_id", "e185caf63fbd452aa7b3d1e6396404a9")
	v.SetDefault("arcgis.ssu_item_id", "543d31deb07c4a4ab4ae9d59b429508d")
	v.SetDefault("arcgis.psu_source", "")
	v.SetDefault("arcgis.ssu_source", "")
	v.SetDefault("arcgis.page_size", 2000)
	v.SetDefault("arcgis.rate_limit", 5.0)
	v.SetDefault("globe.base_url", "https://api.globe.gov/search/v1/measurement/protocol/measureddate/")
	v.SetDefault("globe.start_date", "2022-01-01")
	v.SetDefault("globe.end_date", "2023-12-31")
	v.SetDefault("globe.rate_limit", 2.0)
	v.SetDefault("raster.base_url", "")
	v.SetDefault("raster.api_key", "")
	v.SetDefault("raster.timeout_secs", 60)
	v.SetDefault("raster.rate_limit", 5.0)
	v.SetDefault("raster.max_batch", 5000)
	v.SetDefault("raster.image_asset", "ESA/WorldCover/v100")
	v.SetDefault("raster.image_version", "v100")
	v.SetDefault("raster.band", "Map")
	v.SetDefault("fetch.user_agent", "landcover-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("fetch.sheet_name", "")
	v.SetDefault("fetch.skip_rows", 0)
	v.SetDefault("analysis.radius_meters", 50.0)
	v.SetDefault("analysis.planned_plots", 37)
	v.SetDefault("analysis.scale", 10.0)
	v.SetDefault("analysis.overrides_path", "")
	v.SetDefault("analysis.cache_entries", 64)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.agreement_floor", 0.0)
	v.SetDefault("monitoring.stale_run_minutes", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on and reports every
// problem at once. Modes: "analyze", "serve", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	switch mode {
	case "migrate":
	case "analyze", "serve":
		if c.Raster.BaseURL == "" {
			errs = append(errs, "raster.base_url is required")
		}
		if c.Analysis.RadiusMeters <= 0 {
			errs = append(errs, "analysis.radius_meters must be > 0")
		}
		if c.Analysis.Scale <= 0 {
			errs = append(errs, "analysis.scale must be > 0")
		}
		if c.ArcGIS.PSUSource == "" && c.ArcGIS.PSUItemID == "" {
			errs = append(errs, "arcgis.psu_item_id or arcgis.psu_source is required")
		}
		if c.ArcGIS.SSUSource == "" && c.ArcGIS.SSUItemID == "" {
			errs = append(errs, "arcgis.ssu_item_id or arcgis.ssu_source is required")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if mode == "serve" && c.Monitoring.Enabled && c.Monitoring.WebhookURL == "" {
			errs = append(errs, "monitoring.webhook_url is required when monitoring is enabled")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
