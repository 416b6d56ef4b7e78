package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/amm/internal/config"
	"github.com/elys-network/amm/internal/simulations"
	"github.com/elys-network/amm/internal/state"
)

var (
	simSeed    uint64
	simSteps   int
	simPersist bool
	simOutput  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the stable, volatile and large-trade market scenarios",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if simPersist && cfg.Database == nil {
			return fmt.Errorf("--persist requires DB_HOST to be set")
		}

		registry, manager, err := newMarket(cmd.Context(), cfg, cfg.AMM, cfg.Risk, config.SimulationPools)
		if err != nil {
			return err
		}

		scenarios := simulations.DefaultScenarios(config.SimulationPrices)
		if simSteps > 0 {
			for i := range scenarios {
				scenarios[i].Steps = simSteps
			}
		}
		reports, err := simulations.RunMarketScenarios(simulations.Config{
			Market:        registry,
			Risk:          manager,
			InitialPrices: config.SimulationPrices,
			Seed:          simSeed,
		}, scenarios)
		if err != nil {
			return err
		}

		for _, report := range reports {
			log.Info().
				Str("scenario", report.Scenario).
				Str("runID", report.RunID.String()).
				Float64("totalFees", report.FinalMetrics.TotalFees).
				Float64("totalVolume", report.FinalMetrics.TotalVolume).
				Msg("Simulation report")
		}

		if simPersist {
			if err := state.InitDB(*cfg.Database); err != nil {
				return err
			}
			defer state.CloseDB()
			if err := state.EnsureSchema(); err != nil {
				return err
			}
			for _, report := range reports {
				id, err := state.SaveSimulationReport(report)
				if err != nil {
					return err
				}
				log.Info().Int64("reportID", id).Str("scenario", report.Scenario).Msg("Simulation report saved")
			}
		}

		if simOutput != "" {
			return writeReports(simOutput, reports)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "random seed (0 picks one)")
	simulateCmd.Flags().IntVar(&simSteps, "steps", 0, "steps per scenario (0 keeps the scenario default)")
	simulateCmd.Flags().BoolVar(&simPersist, "persist", false, "save reports to the database")
	simulateCmd.Flags().StringVar(&simOutput, "output", "", "write the reports as JSON to this file (- for stdout)")
}

func writeReports(path string, reports interface{}) error {
	out := os.Stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer file.Close()
		out = file
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reports)
}
