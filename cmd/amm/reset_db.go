package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/amm/internal/state"
)

var resetDBCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Drop and recreate the parameter and report tables",
	RunE: func(*cobra.Command, []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database == nil {
			return fmt.Errorf("DB_HOST environment variable not set")
		}
		log.Info().Msg("Starting database reset...")

		if err := state.InitDB(*cfg.Database); err != nil {
			return err
		}
		defer state.CloseDB()

		if err := state.ResetSchema(); err != nil {
			return err
		}
		log.Info().Msg("Database reset complete!")
		return nil
	},
}
