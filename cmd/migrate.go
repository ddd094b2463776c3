package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the run history and sample cache schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}
		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))

		prune, _ := cmd.Flags().GetBool("prune-samples")
		if !prune {
			return nil
		}
		n, err := st.DeleteExpiredSamples(ctx)
		if err != nil {
			return eris.Wrap(err, "prune samples")
		}
		fmt.Fprintf(os.Stdout, "Pruned %d expired samples.\n", n)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("prune-samples", false, "also delete expired raster samples")
	rootCmd.AddCommand(migrateCmd)
}
