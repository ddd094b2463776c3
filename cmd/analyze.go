package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate CEO vs WorldCover agreement for an AOI",
	Long:  "Samples WorldCover at every SSU point of the AOI (or one plot), harmonizes both labels, and prints the agreement rate, most agreed and most confused classes, and the confusion matrix. Each analysis is recorded in run history.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		aoi, _ := cmd.Flags().GetString("aoi")
		plot, _ := cmd.Flags().GetString("plot")
		asJSON, _ := cmd.Flags().GetBool("json")
		withRecords, _ := cmd.Flags().GetBool("records")

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		svc, err := newService(ctx, env, false)
		if err != nil {
			return err
		}

		res, err := svc.Agreement(ctx, aoi, plot)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		if !withRecords {
			res.Records = nil
		}

		if asJSON {
			return writeJSON(os.Stdout, res)
		}
		formatAgreement(os.Stdout, res)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("aoi", "", "AOI number (required)")
	analyzeCmd.Flags().String("plot", "", "restrict to one plot ID")
	analyzeCmd.Flags().Bool("json", false, "print the report as JSON")
	analyzeCmd.Flags().Bool("records", false, "include harmonized records in JSON output")
	_ = analyzeCmd.MarkFlagRequired("aoi")
	rootCmd.AddCommand(analyzeCmd)
}
