package simulations

import (
	"github.com/elys-network/amm/internal/pool"
	"github.com/elys-network/amm/internal/types"
)

// ProfitabilityMetrics records per-pool LP returns, impermanent loss and fees
// over the course of a simulation.
type ProfitabilityMetrics struct {
	market  Market
	samples []types.MetricsSample
}

// NewProfitabilityMetrics creates an empty recorder for market.
func NewProfitabilityMetrics(market Market) *ProfitabilityMetrics {
	return &ProfitabilityMetrics{market: market}
}

// Update records the metrics of every pool at step.
func (m *ProfitabilityMetrics) Update(step int, totalVolume float64) types.MetricsSample {
	snaps := m.market.Pools()
	sample := types.MetricsSample{
		Step:        step,
		TotalVolume: totalVolume,
		FeesByToken: make(map[string]float64),
		Pools:       make(map[string]types.PoolMetrics, len(snaps)),
	}
	for _, snap := range snaps {
		pm := PoolProfitability(snap)
		sample.Pools[pm.Pool] = pm
		sample.TotalFees += pm.TotalFees
		sample.FeesByToken[snap.TokenA] += snap.TotalFeesA
		sample.FeesByToken[snap.TokenB] += snap.TotalFeesB
	}
	m.samples = append(m.samples, sample)
	return sample
}

// Samples returns every recorded sample in step order.
func (m *ProfitabilityMetrics) Samples() []types.MetricsSample {
	return m.samples
}

// Latest returns the most recent sample, or an empty one if nothing was recorded.
func (m *ProfitabilityMetrics) Latest() types.MetricsSample {
	if len(m.samples) == 0 {
		return types.MetricsSample{FeesByToken: map[string]float64{}, Pools: map[string]types.PoolMetrics{}}
	}
	return m.samples[len(m.samples)-1]
}

// PoolProfitability computes the metrics of a single pool snapshot. LP return is
// (reserveA + reserveB + fees) / LP supply - 1 and impermanent loss is evaluated
// at the current exchange rate.
func PoolProfitability(snap types.PoolSnapshot) types.PoolMetrics {
	pm := types.PoolMetrics{
		Pool:      snap.Key().String(),
		TotalFees: snap.TotalFees(),
	}
	if snap.TotalLPTokens > 0 {
		pm.LPReturn = (snap.TotalValue()+snap.TotalFees())/snap.TotalLPTokens - 1
	}
	if il, err := pool.ImpermanentLoss(snap.ExchangeRate()); err == nil {
		pm.ImpermanentLoss = il
	}
	return pm
}
