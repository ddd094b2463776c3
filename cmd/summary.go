package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show survey progress and mean land cover for an AOI",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		aoi, _ := cmd.Flags().GetString("aoi")
		asJSON, _ := cmd.Flags().GetBool("json")

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		svc, err := newService(ctx, env, false)
		if err != nil {
			return err
		}

		s, err := svc.Summary(aoi)
		if err != nil {
			return eris.Wrap(err, "summary")
		}

		if asJSON {
			return writeJSON(os.Stdout, s)
		}
		formatSummary(os.Stdout, aoi, s)
		return nil
	},
}

func init() {
	summaryCmd.Flags().String("aoi", "", "AOI number (required)")
	summaryCmd.Flags().Bool("json", false, "print the summary as JSON")
	_ = summaryCmd.MarkFlagRequired("aoi")
	rootCmd.AddCommand(summaryCmd)
}
