package main

import (
	"os"

	"github.com/spf13/cobra"
)

var aoisCmd = &cobra.Command{
	Use:   "aois",
	Short: "List surveyed AOIs and their plots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
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

		out, err := listAOIs(svc)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, out)
		}
		formatAOIs(os.Stdout, out)
		return nil
	},
}

// listAOIs pairs every AOI with its SSU plot IDs.
func listAOIs(svc *service) ([]aoiPlots, error) {
	aois := svc.AOIs()
	out := make([]aoiPlots, 0, len(aois))
	for _, aoi := range aois {
		plots, err := svc.Plots(aoi)
		if err != nil {
			return nil, err
		}
		out = append(out, aoiPlots{AOI: aoi, Plots: plots})
	}
	return out, nil
}

func init() {
	aoisCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(aoisCmd)
}
