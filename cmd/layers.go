package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/landcover-cli/internal/raster"
	"github.com/sells-group/landcover-cli/internal/taxonomy"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Build the Sentinel-2 basemap and WorldCover map layers",
	Long:  "Asks the raster engine for a cloud-masked Sentinel-2 median composite of the given year and for the WorldCover image styled with harmonized class colors, and prints their tile URLs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		year, _ := cmd.Flags().GetInt("year")

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		wc := taxonomy.WorldCoverTable()
		if cfg.Analysis.OverridesPath != "" {
			o, err := taxonomy.LoadOverrides(cfg.Analysis.OverridesPath)
			if err != nil {
				return err
			}
			_, wc = o.Tables()
		}

		specs := []struct {
			name string
			spec raster.CompositeSpec
		}{
			{fmt.Sprintf("sentinel-2 %d", year), raster.SentinelComposite(year)},
			{"worldcover", raster.WorldCoverLayer(wc)},
		}
		for _, s := range specs {
			layer, err := env.Raster.Composite(ctx, s.spec)
			if err != nil {
				return eris.Wrapf(err, "layers: %s", s.name)
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\n", s.name, layer.TileURL)
		}
		return nil
	},
}

func init() {
	layersCmd.Flags().Int("year", time.Now().Year()-1, "composite year")
	rootCmd.AddCommand(layersCmd)
}
