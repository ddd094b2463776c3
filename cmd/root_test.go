//go:build !integration

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/landcover-cli/internal/config"
)

// withConfig installs a valid analysis config for the test, applies mutate,
// and restores the previous global config on cleanup.
func withConfig(t *testing.T, mutate func(c *config.Config)) {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	c := &config.Config{
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "landcover.db"),
		},
		Raster:   config.RasterConfig{BaseURL: "http://127.0.0.1:1"},
		ArcGIS:   config.ArcGISConfig{PSUItemID: "psu", SSUItemID: "ssu"},
		Analysis: config.AnalysisConfig{RadiusMeters: 50, Scale: 10},
		Server:   config.ServerConfig{Port: 8080},
	}
	if mutate != nil {
		mutate(c)
	}
	cfg = c
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "aois", "export", "layers", "migrate", "photos", "runs", "serve", "summary"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRunsCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
	assert.True(t, names["stats"])
	assert.True(t, names["check"])
}

func TestAnalyzeCmd_RequiresAOI(t *testing.T) {
	f := analyzeCmd.Flags().Lookup("aoi")
	if assert.NotNil(t, f) {
		assert.Equal(t, []string{"true"}, f.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestPhotosCmd_RequiresAOIAndPlot(t *testing.T) {
	for _, name := range []string{"aoi", "plot"} {
		f := photosCmd.Flags().Lookup(name)
		if assert.NotNil(t, f, name) {
			assert.Equal(t, []string{"true"}, f.Annotations["cobra_annotation_bash_completion_one_required_flag"], name)
		}
	}
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	withConfig(t, func(c *config.Config) { c.Store.Driver = "mysql" })

	_, err := initStore(t.Context())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t, nil)

	st, err := initStore(t.Context())
	if assert.NoError(t, err) {
		assert.NoError(t, st.Migrate(t.Context()))
		assert.NoError(t, st.Close())
	}
}

func TestInitEnv_ValidationFails(t *testing.T) {
	withConfig(t, func(c *config.Config) { c.Raster.BaseURL = "" })

	_, err := initEnv(t.Context(), "analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "raster.base_url is required")
}

func TestInitEnv_BuildsClients(t *testing.T) {
	withConfig(t, nil)

	env, err := initEnv(t.Context(), "analyze")
	if assert.NoError(t, err) {
		defer env.Close()
		assert.NotNil(t, env.Store)
		assert.NotNil(t, env.Raster)
		assert.NotNil(t, env.Opener)
		assert.NotNil(t, env.ArcGIS)
		assert.NotNil(t, env.Globe)
	}
}

func TestRasterImage(t *testing.T) {
	withConfig(t, nil)
	img := rasterImage()
	assert.Equal(t, "ESA/WorldCover/v100", img.Asset)
	assert.Equal(t, "Map", img.Band)

	withConfig(t, func(c *config.Config) {
		c.Raster.ImageAsset = "ESA/WorldCover/v200"
		c.Raster.ImageVersion = "v200"
	})
	img = rasterImage()
	assert.Equal(t, "ESA/WorldCover/v200", img.Asset)
	assert.Equal(t, "v200", img.Version)
	assert.Equal(t, "Map", img.Band)
}

func TestNewPipeline_BadOverrides(t *testing.T) {
	_, err := newPipeline(testSamplerValues(), config.AnalysisConfig{
		Scale:         10,
		OverridesPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	assert.Error(t, err)
}
