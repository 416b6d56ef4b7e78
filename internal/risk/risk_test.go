package risk

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/types"
)

var testRiskParams = types.RiskParameters{
	MeanReturn:      0,
	StdReturn:       0.02,
	ConfidenceLevel: 0.95,
	NumSimulations:  10_000,
}

func newRegistry(t *testing.T) *amm.AMM {
	t.Helper()
	registry, err := amm.NewAMM(amm.Config{Params: types.AMMParameters{
		DefaultFee:          0.003,
		VolumeThreshold:     1_000_000,
		MaxImbalance:        0.1,
		MaxFee:              0.01,
		BalanceMaxIncentive: 0.02,
		DepositTolerance:    1e-3,
		FeeVolumeWindow:     time.Hour,
	}})
	require.NoError(t, err)
	return registry
}

func TestLiquidityReturns(t *testing.T) {
	snap := types.PoolSnapshot{ReserveA: 1000, ReserveB: 2000, TotalLPTokens: 100}
	ret, err := LiquidityReturns(snap, 500, 1000, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1314.213, ret, 1e-3)

	_, err = LiquidityReturns(snap, 0, 1000, 2)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = LiquidityReturns(snap, 500, 1000, 0)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestValueAtRisk(t *testing.T) {
	snap := types.PoolSnapshot{ReserveA: 1000, ReserveB: 2000}
	returns := []float64{-0.01, -0.02, -0.03, 0.01, 0.02}

	v, err := ValueAtRisk(snap, returns, 0.95, 1)
	require.NoError(t, err)
	assert.InDelta(t, 84.0, v, 1e-9)

	scaled, err := ValueAtRisk(snap, returns, 0.95, 4)
	require.NoError(t, err)
	assert.InDelta(t, 168.0, scaled, 1e-9)

	_, err = ValueAtRisk(snap, nil, 0.95, 1)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
	_, err = ValueAtRisk(snap, returns, 1, 1)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
	_, err = ValueAtRisk(snap, returns, 0.95, 0)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestValueAtRiskMonotoneInConfidence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		returns := rapid.SliceOfN(rapid.Float64Range(-0.5, 0.5), 1, 200).Draw(t, "returns")
		lo := rapid.Float64Range(0.01, 0.98).Draw(t, "lo")
		hi := rapid.Float64Range(lo, 0.99).Draw(t, "hi")
		snap := types.PoolSnapshot{ReserveA: 1000, ReserveB: 2000}

		vLo, err := ValueAtRisk(snap, returns, lo, 1)
		if err != nil {
			t.Fatalf("var: %v", err)
		}
		vHi, err := ValueAtRisk(snap, returns, hi, 1)
		if err != nil {
			t.Fatalf("var: %v", err)
		}
		if vHi < vLo-1e-9 {
			t.Fatalf("VaR decreased with confidence: %v at %v, %v at %v", vLo, lo, vHi, hi)
		}
	})
}

func TestStopLoss(t *testing.T) {
	snap := types.PoolSnapshot{ReserveA: 500, ReserveB: 1000}

	initial := 2000.0
	triggered, err := StopLossTriggered(snap, 0.1, &initial)
	require.NoError(t, err)
	assert.True(t, triggered)

	triggered, err = StopLossTriggered(snap, 0.3, &initial)
	require.NoError(t, err)
	assert.False(t, triggered)

	triggered, err = StopLossTriggered(snap, 0.1, nil)
	require.NoError(t, err)
	assert.False(t, triggered, "current value as baseline never triggers")

	zero := 0.0
	_, err = StopLossTriggered(snap, 0.1, &zero)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestPositionSizing(t *testing.T) {
	snap := types.PoolSnapshot{ReserveA: 1000, ReserveB: 2000}
	a, b, err := PositionSizing(snap, 0.02)
	require.NoError(t, err)
	assert.InDelta(t, 20, a, 1e-9)
	assert.InDelta(t, 40, b, 1e-9)

	_, _, err = PositionSizing(snap, 1.5)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestNormalModel(t *testing.T) {
	_, err := NewNormalModel(0, 0, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	a, err := NewNormalModel(0, 0.02, rand.NewPCG(1, 1))
	require.NoError(t, err)
	b, err := NewNormalModel(0, 0.02, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, a.Sample(10), b.Sample(10), "same seed, same draws")

	samples := a.Sample(20_000)
	var sum float64
	for _, s := range samples {
		sum += s
	}
	assert.InDelta(t, 0, sum/float64(len(samples)), 0.002)
}

func TestFitNormalModel(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]types.PriceData, 0, 50)
	price := 100.0
	for i := 0; i < 50; i++ {
		prices = append(prices, types.PriceData{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: price})
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.99
		}
	}
	model, err := FitNormalModel(prices, rand.NewPCG(3, 3))
	require.NoError(t, err)
	assert.InDelta(t, 0, model.Mean(), 1e-3)
	assert.InDelta(t, 0.01, model.StdDev(), 1e-3)

	_, err = FitNormalModel(prices[:2], nil)
	assert.Error(t, err)
}

func TestRiskManager(t *testing.T) {
	registry := newRegistry(t)
	require.NoError(t, registry.CreatePool("TokenA", "TokenB", 1000, 2000))

	m, err := NewRiskManager(registry, FixedModel{-0.01, -0.02, -0.03, 0.01, 0.02}, testRiskParams)
	require.NoError(t, err)

	t.Run("value at risk", func(t *testing.T) {
		v, err := m.CalculateVaR("TokenA", "TokenB", VaROptions{NumSimulations: 5})
		require.NoError(t, err)
		assert.InDelta(t, 84.0, v, 1e-9)

		_, err = m.CalculateVaR("TokenA", "TokenC", VaROptions{})
		assert.ErrorIs(t, err, types.ErrPoolNotFound)
	})

	t.Run("position sizing in caller order", func(t *testing.T) {
		a, b, err := m.DynamicPositionSizing("TokenB", "TokenA", 0.02)
		require.NoError(t, err)
		assert.InDelta(t, 40, a, 1e-9)
		assert.InDelta(t, 20, b, 1e-9)
	})

	t.Run("stop loss", func(t *testing.T) {
		initial := 4000.0
		triggered, err := m.ImplementStopLoss("TokenA", "TokenB", 0.2, &initial)
		require.NoError(t, err)
		assert.True(t, triggered)
	})

	t.Run("fees", func(t *testing.T) {
		_, err := registry.Swap("TokenA", "TokenB", 100)
		require.NoError(t, err)
		fees := m.CalculateTotalFeesEarned()
		assert.InDelta(t, 0.3, fees["TokenA"], 1e-12)
		assert.Zero(t, fees["TokenB"])
	})

	t.Run("liquidity returns", func(t *testing.T) {
		ret, err := m.CalculateLiquidityReturns("TokenA", "TokenB", 10, 20, 2)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(ret))
	})
}

func TestRiskManagerDefaultModel(t *testing.T) {
	registry := newRegistry(t)
	require.NoError(t, registry.CreatePool("TokenA", "TokenB", 1000, 1000))

	m, err := NewRiskManager(registry, nil, testRiskParams)
	require.NoError(t, err)

	v, err := m.CalculateVaR("TokenA", "TokenB", VaROptions{NumSimulations: 20_000})
	require.NoError(t, err)
	// 1.645 sigma of a 2000 pool at 2% std.
	assert.InDelta(t, 65.8, v, 5)

	_, err = NewRiskManager(nil, nil, testRiskParams)
	assert.Error(t, err)
}
