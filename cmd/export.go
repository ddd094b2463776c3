package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/ceo"
	"github.com/sells-group/landcover-cli/internal/fetcher"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one AOI's PSU or SSU rows as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		aoi, _ := cmd.Flags().GetString("aoi")
		kindFlag, _ := cmd.Flags().GetString("kind")
		outDir, _ := cmd.Flags().GetString("out")

		kind, err := ceo.ParseKind(kindFlag)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		svc, err := newService(ctx, env, false)
		if err != nil {
			return err
		}

		t, name, err := svc.Export(kind, aoi)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		path := filepath.Join(outDir, name)
		if err := writeExport(path, t); err != nil {
			return err
		}

		zap.L().Info("export written", zap.String("path", path), zap.Int("rows", t.Len()))
		fmt.Fprintln(os.Stdout, path)
		return nil
	},
}

// writeExport writes t as CSV to path.
func writeExport(path string, t fetcher.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := ceo.ExportCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func init() {
	exportCmd.Flags().String("aoi", "", "AOI number (required)")
	exportCmd.Flags().String("kind", "psu", "table to export: psu or ssu")
	exportCmd.Flags().String("out", ".", "output directory")
	_ = exportCmd.MarkFlagRequired("aoi")
	rootCmd.AddCommand(exportCmd)
}
