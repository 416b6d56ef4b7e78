package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/amm/internal/config"
	"github.com/elys-network/amm/internal/logger"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product AMM with dynamic fees and LP risk analytics",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(
		&logLevel,
		"log-level",
		"",
		"log level (trace, debug, info, warn, error); overrides LOG_LEVEL",
	)
	rootCmd.AddCommand(
		serveCmd,
		simulateCmd,
		resetDBCmd,
	)
}

// main is the entry point for the AMM service.
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment, then initializes the logger.
func loadConfig() (*config.AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}
