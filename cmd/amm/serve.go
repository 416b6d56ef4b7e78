package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/config"
	"github.com/elys-network/amm/internal/metrics"
	"github.com/elys-network/amm/internal/state"
	"github.com/elys-network/amm/internal/types"
	"github.com/elys-network/amm/internal/web"
)

const paramsVersion = 1

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API over the default pools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info().Msg("AMM service starting...")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ammParams, riskParams := cfg.AMM, cfg.Risk
		if cfg.Database != nil {
			if err := state.InitDB(*cfg.Database); err != nil {
				return err
			}
			defer state.CloseDB()
			if err := state.EnsureSchema(); err != nil {
				return err
			}
			ammParams, riskParams, err = activeParameters(cfg)
			if err != nil {
				return err
			}
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		history := state.NewTransactionHistory(cfg.HistoryLimit)
		poolMetrics := metrics.NewPoolMetrics(reg)

		registry, manager, err := newMarket(ctx, cfg, ammParams, riskParams, config.DefaultPools, history, poolMetrics)
		if err != nil {
			return err
		}
		log.Info().Int("pools", registry.PoolCount()).Msg("Default pools created")

		server, err := web.NewWebServer(web.Config{
			Port:        cfg.WebPort,
			AMM:         registry,
			Risk:        manager,
			History:     history,
			Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			Persistence: cfg.Database != nil,
		})
		if err != nil {
			return err
		}

		log.Info().Str("port", cfg.WebPort).Str("url", "http://localhost:"+cfg.WebPort).Msg("Starting AMM API")
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info().Msg("AMM service stopped")
		return nil
	},
}

// activeParameters loads the stored parameter set, saving the configured one
// as the first version when none is active yet.
func activeParameters(cfg *config.AppConfig) (types.AMMParameters, types.RiskParameters, error) {
	storedAMM, storedRisk, err := state.LoadActiveParameters(cfg.ParamsConfigName)
	if err == nil {
		log.Info().Str("config", cfg.ParamsConfigName).Msg("Active parameters loaded from database")
		return *storedAMM, *storedRisk, nil
	}
	if !errors.Is(err, state.ErrNoActiveParameters) {
		return types.AMMParameters{}, types.RiskParameters{}, err
	}

	log.Warn().Err(err).Msg("No active parameters, saving the configured defaults")
	if _, err := state.SaveParameters(cfg.AMM, cfg.Risk, cfg.ParamsConfigName, paramsVersion, true); err != nil {
		return types.AMMParameters{}, types.RiskParameters{}, err
	}
	return cfg.AMM, cfg.Risk, nil
}

// Compile-time checks that the observers wired above satisfy amm.Observer.
var (
	_ amm.Observer = (*state.TransactionHistory)(nil)
	_ amm.Observer = (*metrics.PoolMetrics)(nil)
)
