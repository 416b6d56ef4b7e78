// Package metrics exports pool activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/types"
)

const (
	namespace = "amm"
	subsystem = "pool"
)

// PoolMetrics holds all Prometheus metrics for the AMM. It implements amm.Observer.
type PoolMetrics struct {
	// Swap metrics
	SwapsTotal        *prometheus.CounterVec
	SwapVolume        *prometheus.CounterVec
	SwapFeesCollected *prometheus.CounterVec

	// Liquidity metrics
	LiquidityEvents *prometheus.CounterVec
	LPTokensMinted  *prometheus.CounterVec
	LPTokensBurned  *prometheus.CounterVec

	// Pool state
	PoolsTotal         prometheus.Gauge
	PoolReserves       *prometheus.GaugeVec
	LPTokenSupply      *prometheus.GaugeVec
	PoolTVL            *prometheus.GaugeVec
	PoolFee            *prometheus.GaugeVec
	PoolImbalanceRatio *prometheus.GaugeVec
	FeeAdjustments     *prometheus.CounterVec
}

// NewPoolMetrics creates the metrics and registers them with reg.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	factory := promauto.With(reg)
	return &PoolMetrics{
		SwapsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swaps_total",
				Help:      "Total number of swaps executed",
			},
			[]string{"pool", "token_in", "token_out"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swap_volume_total",
				Help:      "Total swap input in units of the input token",
			},
			[]string{"pool", "token_in"},
		),
		SwapFeesCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swap_fees_total",
				Help:      "Total fees collected in units of the input token",
			},
			[]string{"pool", "token_in"},
		),
		LiquidityEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "liquidity_events_total",
				Help:      "Total number of liquidity additions and removals",
			},
			[]string{"pool", "action"},
		),
		LPTokensMinted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_tokens_minted_total",
				Help:      "Total LP tokens minted",
			},
			[]string{"pool"},
		),
		LPTokensBurned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_tokens_burned_total",
				Help:      "Total LP tokens burned",
			},
			[]string{"pool"},
		),
		PoolsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pools",
				Help:      "Number of registered pools",
			},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reserves",
				Help:      "Current pool reserve per token",
			},
			[]string{"pool", "token"},
		),
		LPTokenSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_token_supply",
				Help:      "Outstanding LP tokens",
			},
			[]string{"pool"},
		),
		PoolTVL: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tvl",
				Help:      "Nominal total value locked (sum of reserves)",
			},
			[]string{"pool"},
		),
		PoolFee: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fee",
				Help:      "Current swap fee fraction",
			},
			[]string{"pool"},
		),
		PoolImbalanceRatio: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "imbalance_ratio",
				Help:      "Reserve ratio A/B of the canonical sides",
			},
			[]string{"pool"},
		),
		FeeAdjustments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fee_adjustments_total",
				Help:      "Total number of dynamic fee adjustments",
			},
			[]string{"pool"},
		),
	}
}

// Observe implements amm.Observer.
func (m *PoolMetrics) Observe(ev amm.Event) {
	pool := ev.Pool.String()

	switch ev.Type {
	case types.TxCreatePool:
		m.PoolsTotal.Inc()
		m.LPTokensMinted.WithLabelValues(pool).Add(ev.LPTokens)
	case types.TxSwap:
		m.SwapsTotal.WithLabelValues(pool, ev.TokenA, ev.TokenB).Inc()
		m.SwapVolume.WithLabelValues(pool, ev.TokenA).Add(ev.AmountA)
		m.SwapFeesCollected.WithLabelValues(pool, ev.TokenA).Add(ev.AmountA * ev.Fee)
	case types.TxAddLiquidity:
		m.LiquidityEvents.WithLabelValues(pool, "add").Inc()
		m.LPTokensMinted.WithLabelValues(pool).Add(ev.LPTokens)
	case types.TxRemoveLiquidity:
		m.LiquidityEvents.WithLabelValues(pool, "remove").Inc()
		m.LPTokensBurned.WithLabelValues(pool).Add(ev.LPTokens)
	case types.TxFeeAdjustment:
		m.FeeAdjustments.WithLabelValues(pool).Inc()
	}

	m.observeState(pool, ev.State)
}

func (m *PoolMetrics) observeState(pool string, s types.PoolSnapshot) {
	m.PoolReserves.WithLabelValues(pool, s.TokenA).Set(s.ReserveA)
	m.PoolReserves.WithLabelValues(pool, s.TokenB).Set(s.ReserveB)
	m.LPTokenSupply.WithLabelValues(pool).Set(s.TotalLPTokens)
	m.PoolTVL.WithLabelValues(pool).Set(s.TotalValue())
	m.PoolFee.WithLabelValues(pool).Set(s.Fee)
	if s.ReserveB > 0 {
		m.PoolImbalanceRatio.WithLabelValues(pool).Set(s.ReserveA / s.ReserveB)
	}
}
