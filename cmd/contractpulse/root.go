package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ContractPulse/internal/config"
	"ContractPulse/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "contractpulse",
	Short: "Measure how stock prices move around federal contract awards",
	Long: `ContractPulse fetches federal contract awards for a company from USAspending,
compares the stock's average price and volume before and after each award,
and reports the results on a schedule or on demand.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	def := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", def, "path to the YAML config file (env CONFIG_PATH)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig loads and validates the config, then initialises logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
