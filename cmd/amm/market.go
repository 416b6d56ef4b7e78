package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/config"
	"github.com/elys-network/amm/internal/datafetcher"
	"github.com/elys-network/amm/internal/risk"
	"github.com/elys-network/amm/internal/types"
)

// newMarket builds the registry, seeds its pools and attaches a risk manager.
func newMarket(ctx context.Context, cfg *config.AppConfig, ammParams types.AMMParameters, riskParams types.RiskParameters, seeds []config.PoolSeed, observers ...amm.Observer) (*amm.AMM, *risk.RiskManager, error) {
	var oracle amm.VolumeOracle
	switch cfg.VolumeOracle {
	case config.VolumeOracleTrades:
		oracle = amm.NewTradeVolumeOracle(ammParams.FeeVolumeWindow, time.Now)
	default:
		oracle = amm.NewSyntheticVolumeOracle(newSource(riskParams.Seed), time.Now)
	}

	registry, err := amm.NewAMM(amm.Config{
		Params:       ammParams,
		VolumeOracle: oracle,
		Observers:    observers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AMM: %w", err)
	}
	for _, seed := range seeds {
		if err := registry.CreatePool(seed.TokenA, seed.TokenB, seed.InitialA, seed.InitialB); err != nil {
			return nil, nil, fmt.Errorf("failed to create pool %s-%s: %w", seed.TokenA, seed.TokenB, err)
		}
	}

	model, err := returnModel(ctx, cfg.PriceSource, riskParams)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create return model: %w", err)
	}
	manager, err := risk.NewRiskManager(registry, model, riskParams)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create risk manager: %w", err)
	}
	return registry, manager, nil
}

// returnModel fits the normal return model to the configured price history, or
// builds it from the static parameters when no price source is set.
func returnModel(ctx context.Context, source config.PriceSourceConfig, riskParams types.RiskParameters) (*risk.NormalModel, error) {
	if !source.Enabled() {
		return risk.NewNormalModel(riskParams.MeanReturn, riskParams.StdReturn, newSource(riskParams.Seed))
	}

	fetcher, err := datafetcher.NewPriceFetcher(source.APIKey, source.Hours)
	if err != nil {
		return nil, err
	}
	prices, err := fetcher.FetchHourlyPrices(ctx, source.Token)
	if err != nil {
		return nil, err
	}
	model, err := risk.FitNormalModel(prices, newSource(riskParams.Seed))
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("token", source.Token).
		Int("hours", len(prices)).
		Float64("mean", model.Mean()).
		Float64("stdDev", model.StdDev()).
		Msg("Return model fitted to price history")
	return model, nil
}

// newSource returns a PCG source for seed, or a randomly seeded one for 0.
func newSource(seed uint64) rand.Source {
	if seed == 0 {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.NewPCG(seed, seed)
}
