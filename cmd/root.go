package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "listing-intake",
	Short: "Real-estate listing ingestion pipeline",
	Long:  "Extracts listing fields from documents and photos via Claude models, enriches with geo intelligence, and maps the canonical listing onto MLS form schemas.",
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
