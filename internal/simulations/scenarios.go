package simulations

import (
	"fmt"
	"sort"

	"github.com/elys-network/amm/internal/types"
)

// Scenario is a named simulation run.
type Scenario struct {
	Name       string
	Steps      int
	Volatility float64
	// LargeTrade, when set, is injected after the random steps.
	LargeTrade *Trade
}

// Trade names a swap.
type Trade struct {
	TokenIn  string
	TokenOut string
	Amount   float64
}

// DefaultScenarios returns the stable, volatile and large-trade markets. The
// large trade sells 10000 of the first token, in symbol order, for the second.
func DefaultScenarios(prices map[string]float64) []Scenario {
	tokens := make([]string, 0, len(prices))
	for token := range prices {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	scenarios := []Scenario{
		{Name: "stable", Steps: 100, Volatility: 0.01},
		{Name: "volatile", Steps: 100, Volatility: 0.05},
		{Name: "large_trade", Steps: 100, Volatility: 0.02},
	}
	if len(tokens) >= 2 {
		scenarios[2].LargeTrade = &Trade{TokenIn: tokens[0], TokenOut: tokens[1], Amount: 10_000}
	}
	return scenarios
}

// RunMarketScenarios runs each scenario in turn against the same market, starting
// every run from base's initial prices. Scenario i is seeded with base.Seed+i when
// base.Seed is set.
func RunMarketScenarios(base Config, scenarios []Scenario) ([]types.SimulationReport, error) {
	reports := make([]types.SimulationReport, 0, len(scenarios))
	for i, sc := range scenarios {
		cfg := base
		cfg.Scenario = sc.Name
		if base.Seed != 0 {
			cfg.Seed = base.Seed + uint64(i)
		}

		sim, err := NewMarketSimulation(cfg)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		if err := sim.RunSimulation(sc.Steps, sc.Volatility); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		if sc.LargeTrade != nil {
			record := sim.InjectTrade(sc.LargeTrade.TokenIn, sc.LargeTrade.TokenOut, sc.LargeTrade.Amount)
			if record.Error != "" {
				sim.logger.Warn().Str("error", record.Error).Msg("Injected large trade failed")
			}
		}

		report := sim.GenerateReport(sc.Volatility)
		reports = append(reports, report)

		sim.logger.Info().
			Str("runID", report.RunID.String()).
			Int("steps", len(report.Steps)).
			Float64("totalFees", report.FinalMetrics.TotalFees).
			Msg("Scenario completed")
	}
	return reports, nil
}
