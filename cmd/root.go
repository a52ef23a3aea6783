package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/realisrare-223/leadparser/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadparser",
	Short: "Local lead generation pipeline for web design prospecting",
	Long:  "Collects local business listings, scores them by how badly they need a website, enriches missing phone numbers from public directories, and exports call sheets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
