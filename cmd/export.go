package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/pipeline"
)

var exportNoXLSX bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export stored leads without scraping",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		coord := buildCoordinator(st, "", pipeline.NewTracker())
		if _, err := coord.Run(ctx, pipeline.RunOptions{ExportOnly: true, SkipXLSX: exportNoXLSX}); err != nil {
			return eris.Wrap(err, "export")
		}

		zap.L().Info("export complete", zap.String("output_dir", cfg.Export.OutputDir))
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportNoXLSX, "no-xlsx", false, "skip the XLSX workbook export")
	rootCmd.AddCommand(exportCmd)
}
