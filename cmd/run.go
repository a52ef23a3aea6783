package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/pipeline"
)

var (
	runNiches []string
	runInput  string
	runDry    bool
	runNoXLSX bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full lead pipeline",
	Long:  "Reads raw business records, scores and enriches them, stores new leads, and writes the CSV and XLSX exports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		coord := buildCoordinator(st, runInput, pipeline.NewTracker())
		stats, err := coord.Run(ctx, pipeline.RunOptions{
			Niches:   runNiches,
			DryRun:   runDry,
			SkipXLSX: runNoXLSX,
		})
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.Int("niches", stats.Niches),
			zap.Int("scraped", stats.Total),
			zap.Int("new", stats.New),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("errors", stats.Errors),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runNiches, "niche", nil, "niche(s) to process (default from config)")
	runCmd.Flags().StringVar(&runInput, "input", "", "raw records CSV path (default from config)")
	runCmd.Flags().BoolVar(&runDry, "dry-run", false, "process records without writing to the store or disk")
	runCmd.Flags().BoolVar(&runNoXLSX, "no-xlsx", false, "skip the XLSX workbook export")
	rootCmd.AddCommand(runCmd)
}
