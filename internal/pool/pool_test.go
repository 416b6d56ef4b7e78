package pool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/elys-network/amm/internal/types"
)

func mustPool(t *testing.T, a, b float64) *LiquidityPool {
	t.Helper()
	p, err := New(a, b, DefaultFee)
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	p := mustPool(t, 1000, 1)
	state := p.State()
	assert.Equal(t, 1000.0, state.K)
	assert.InDelta(t, math.Sqrt(1000), state.TotalLPTokens, 1e-12)
	assert.Equal(t, DefaultFee, state.Fee)

	_, err := New(0, 10, DefaultFee)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = New(10, math.NaN(), DefaultFee)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = New(10, 10, 1)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestSwap(t *testing.T) {
	t.Run("a to b", func(t *testing.T) {
		p := mustPool(t, 1000, 1000)
		out, err := p.SwapAToB(100)
		require.NoError(t, err)
		assert.InDelta(t, 90.661, out, 1e-3)

		state := p.State()
		assert.Equal(t, 1100.0, state.ReserveA)
		assert.InDelta(t, 1000-out, state.ReserveB, 1e-9)
		assert.InDelta(t, 0.3, state.TotalFeesA, 1e-12)
		assert.Zero(t, state.TotalFeesB)
		assert.Equal(t, 1e6, state.K, "swaps leave k untouched")
	})

	t.Run("b to a", func(t *testing.T) {
		p := mustPool(t, 1000, 1000)
		out, err := p.SwapBToA(100)
		require.NoError(t, err)
		assert.InDelta(t, 90.661, out, 1e-3)
		assert.InDelta(t, 0.3, p.State().TotalFeesB, 1e-12)
	})

	t.Run("quote does not mutate", func(t *testing.T) {
		p := mustPool(t, 1000, 1000)
		quote, err := p.QuoteAToB(100)
		require.NoError(t, err)
		out, err := p.SwapAToB(100)
		require.NoError(t, err)
		assert.Equal(t, quote, out)
	})

	t.Run("rejects non-positive input", func(t *testing.T) {
		p := mustPool(t, 1000, 1000)
		for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
			_, err := p.SwapAToB(amount)
			assert.ErrorIs(t, err, types.ErrInvalidAmount, "amount %v", amount)
		}
		assert.Equal(t, 1000.0, p.State().ReserveA)
	})

	t.Run("fee free pool", func(t *testing.T) {
		p, err := New(1000, 1000, 0)
		require.NoError(t, err)
		out, err := p.SwapAToB(1000)
		require.NoError(t, err)
		assert.InDelta(t, 500, out, 1e-9)
	})
}

func TestAddRemoveLiquidity(t *testing.T) {
	p := mustPool(t, 1000, 1)

	minted, err := p.AddLiquidity(100, 0.1, DefaultTolerance)
	require.NoError(t, err)
	assert.InDelta(t, 3.162, minted, 1e-3)

	state := p.State()
	assert.Equal(t, state.ReserveA*state.ReserveB, state.K)

	amountA, amountB, err := p.RemoveLiquidity(5)
	require.NoError(t, err)
	assert.InDelta(t, 158.113, amountA, 1e-3)
	assert.InDelta(t, 0.158113, amountB, 1e-6)
	assert.InDelta(t, math.Sqrt(1000)+minted-5, p.State().TotalLPTokens, 1e-9)
}

func TestAddLiquidityImbalanced(t *testing.T) {
	p := mustPool(t, 1000, 1000)
	_, err := p.AddLiquidity(100, 200, DefaultTolerance)
	require.ErrorIs(t, err, types.ErrImbalancedDeposit)
	assert.Equal(t, 1000.0, p.State().ReserveA)

	// within tolerance
	_, err = p.AddLiquidity(100, 100.05, DefaultTolerance)
	assert.NoError(t, err)
}

func TestAddLiquidityWithBonus(t *testing.T) {
	p := mustPool(t, 1000, 1000)
	before := p.State().TotalLPTokens

	minted, err := p.AddLiquidityWithBonus(100, 100, 0.01, DefaultTolerance)
	require.NoError(t, err)
	assert.InDelta(t, 100*1.01, minted, 1e-9)
	assert.InDelta(t, before+minted, p.State().TotalLPTokens, 1e-9)
}

func TestRemoveLiquidityErrors(t *testing.T) {
	p := mustPool(t, 1000, 1000)
	total := p.State().TotalLPTokens

	_, _, err := p.RemoveLiquidity(total + 1)
	assert.ErrorIs(t, err, types.ErrInsufficientShare)

	_, _, err = p.RemoveLiquidity(total)
	assert.ErrorIs(t, err, types.ErrInsufficientShare)

	_, _, err = p.RemoveLiquidity(0)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	assert.Equal(t, total, p.State().TotalLPTokens)
}

func TestImpermanentLoss(t *testing.T) {
	il, err := ImpermanentLoss(1)
	require.NoError(t, err)
	assert.Zero(t, il)

	il, err = ImpermanentLoss(1.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.101, il, 1e-3)

	inverse, err := ImpermanentLoss(1 / 1.5)
	require.NoError(t, err)
	assert.InDelta(t, -il, inverse, 1e-12)

	_, err = ImpermanentLoss(0)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestSetFee(t *testing.T) {
	p := mustPool(t, 1000, 1000)
	require.NoError(t, p.SetFee(0.01))
	assert.Equal(t, 0.01, p.Fee())
	assert.ErrorIs(t, p.SetFee(-0.1), types.ErrInvalidParameter)
	assert.Equal(t, 0.01, p.Fee())
}

func TestSwapProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveA := rapid.Float64Range(100, 1e6).Draw(t, "reserveA")
		reserveB := rapid.Float64Range(100, 1e6).Draw(t, "reserveB")
		fee := rapid.Float64Range(0, 0.05).Draw(t, "fee")
		amountIn := rapid.Float64Range(1e-3, 1e4).Draw(t, "amountIn")
		aToB := rapid.Bool().Draw(t, "aToB")

		p, err := New(reserveA, reserveB, fee)
		if err != nil {
			t.Fatalf("new pool: %v", err)
		}
		before := p.State()

		var out float64
		if aToB {
			out, err = p.SwapAToB(amountIn)
		} else {
			out, err = p.SwapBToA(amountIn)
		}
		if err != nil {
			return
		}
		after := p.State()

		if after.ReserveA <= 0 || after.ReserveB <= 0 {
			t.Fatalf("reserve drained: %+v", after)
		}
		if after.ReserveA*after.ReserveB < before.K*(1-1e-9) {
			t.Fatalf("product fell below k: %v < %v", after.ReserveA*after.ReserveB, before.K)
		}
		if after.TotalLPTokens != before.TotalLPTokens {
			t.Fatalf("swap changed LP supply")
		}
		gotFees := after.TotalFees() - before.TotalFees()
		if math.Abs(gotFees-amountIn*fee) > 1e-9*math.Max(1, amountIn) {
			t.Fatalf("fee accrual %v, want %v", gotFees, amountIn*fee)
		}
		if out <= 0 {
			t.Fatalf("non-positive output %v", out)
		}
	})
}

func TestLiquidityRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveA := rapid.Float64Range(1, 1e6).Draw(t, "reserveA")
		reserveB := rapid.Float64Range(1, 1e6).Draw(t, "reserveB")
		fraction := rapid.Float64Range(1e-4, 10).Draw(t, "fraction")

		p, err := New(reserveA, reserveB, DefaultFee)
		if err != nil {
			t.Fatalf("new pool: %v", err)
		}
		amountA := reserveA * fraction
		amountB := reserveB * fraction

		minted, err := p.AddLiquidity(amountA, amountB, DefaultTolerance)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		gotA, gotB, err := p.RemoveLiquidity(minted)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if math.Abs(gotA-amountA) > 1e-6*amountA || math.Abs(gotB-amountB) > 1e-6*amountB {
			t.Fatalf("round trip returned (%v, %v), deposited (%v, %v)", gotA, gotB, amountA, amountB)
		}
		state := p.State()
		if math.Abs(state.K-state.ReserveA*state.ReserveB) > 1e-9*state.K {
			t.Fatalf("k not refreshed after liquidity change")
		}
	})
}
