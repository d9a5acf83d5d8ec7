package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "riskprofile",
	Short: "Suitability classification and portfolio construction pipeline",
	Long:  "Scores risk questionnaires, classifies suitability with a willingness/ability split, gates IPS generation on confidence, and builds and rebalances policy portfolios.",
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
