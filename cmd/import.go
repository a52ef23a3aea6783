package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/pipeline"
)

var (
	importCSVPath string
	importNiches  []string
	importEnrich  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import raw business records from a CSV file",
	Long:  "Feeds a manually exported listing dump through the normal build, score, and dedup path without touching the network or writing export files.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		coord := buildCoordinator(st, importCSVPath, pipeline.NewTracker())
		stats, err := coord.Run(ctx, pipeline.RunOptions{
			Niches:     importNiches,
			SkipEnrich: !importEnrich,
			SkipExport: true,
		})
		if err != nil {
			return eris.Wrap(err, "import run")
		}

		zap.L().Info("import complete",
			zap.String("csv", importCSVPath),
			zap.Int("scraped", stats.Total),
			zap.Int("new", stats.New),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("errors", stats.Errors),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringSliceVar(&importNiches, "niche", nil, "niche(s) to import (default from config)")
	importCmd.Flags().BoolVar(&importEnrich, "enrich", false, "run the phone/social lookup waterfall on imported records")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
