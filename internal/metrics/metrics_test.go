package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/types"
)

func TestPoolMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPoolMetrics(reg)

	registry, err := amm.NewAMM(amm.Config{
		Params: types.AMMParameters{
			DefaultFee:          0.003,
			VolumeThreshold:     1_000_000,
			MaxImbalance:        0.1,
			MaxFee:              0.01,
			BalanceMaxIncentive: 0.02,
			DepositTolerance:    1e-3,
			FeeVolumeWindow:     time.Hour,
		},
		Observers: []amm.Observer{m},
	})
	require.NoError(t, err)

	require.NoError(t, registry.CreatePool("USDC", "ETH", 1000, 1000))
	_, err = registry.Swap("USDC", "ETH", 100)
	require.NoError(t, err)
	_, err = registry.AddLiquidity("ETH", "USDC", 10, 10*1100/(1000-90.66108938801491))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapsTotal.WithLabelValues("ETH-USDC", "USDC", "ETH")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.SwapVolume.WithLabelValues("ETH-USDC", "USDC")))
	assert.InDelta(t, 0.3, testutil.ToFloat64(m.SwapFeesCollected.WithLabelValues("ETH-USDC", "USDC")), 1e-12)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiquidityEvents.WithLabelValues("ETH-USDC", "add")))

	snap, err := registry.GetPool("ETH", "USDC")
	require.NoError(t, err)
	assert.Equal(t, snap.ReserveB, testutil.ToFloat64(m.PoolReserves.WithLabelValues("ETH-USDC", "USDC")))
	assert.Equal(t, snap.TotalLPTokens, testutil.ToFloat64(m.LPTokenSupply.WithLabelValues("ETH-USDC")))
	assert.Equal(t, snap.TotalValue(), testutil.ToFloat64(m.PoolTVL.WithLabelValues("ETH-USDC")))

	count, err := testutil.GatherAndCount(reg, "amm_pool_swaps_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
