package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Find GLOBE ground photos near a plot",
	Long:  "Loads the plot centroids of an AOI and GLOBE land cover observations, then prints the https photo URLs of the observation nearest to the plot within the search radius.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		aoi, _ := cmd.Flags().GetString("aoi")
		plot, _ := cmd.Flags().GetString("plot")
		asJSON, _ := cmd.Flags().GetBool("json")
		if radius, _ := cmd.Flags().GetFloat64("radius"); radius > 0 {
			cfg.Analysis.RadiusMeters = radius
		}

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		svc, err := newService(ctx, env, true)
		if err != nil {
			return err
		}

		res, err := svc.Photos(aoi, plot)
		if err != nil {
			return eris.Wrap(err, "photos")
		}

		if asJSON {
			return writeJSON(os.Stdout, res)
		}
		formatPhotos(os.Stdout, plot, res)
		return nil
	},
}

func init() {
	photosCmd.Flags().String("aoi", "", "AOI number the plot belongs to (required)")
	photosCmd.Flags().String("plot", "", "plot ID (required)")
	photosCmd.Flags().Float64("radius", 0, "search half-width in meters (default from config)")
	photosCmd.Flags().Bool("json", false, "print the match as JSON")
	_ = photosCmd.MarkFlagRequired("aoi")
	_ = photosCmd.MarkFlagRequired("plot")
	rootCmd.AddCommand(photosCmd)
}
