// Package risk computes liquidity-provider risk figures for AMM pools: position
// returns, Monte Carlo value at risk, stop-loss checks and position sizing.
package risk

import (
	"math"
	"sort"

	errorsmod "cosmossdk.io/errors"

	"github.com/elys-network/amm/internal/types"
)

// LiquidityReturns returns the percentage change in value of a position seeded with
// (initialA, initialB), valued in token A at priceRatio (B per A).
//
// The position's share of the pool is sqrt(initialA*initialB)/totalLPTokens, which
// treats the geometric mean of the deposit as the LP tokens it holds.
func LiquidityReturns(snap types.PoolSnapshot, initialA, initialB, priceRatio float64) (float64, error) {
	if !isPositive(initialA) || !isPositive(initialB) {
		return 0, errorsmod.Wrapf(types.ErrInvalidAmount, "initial investment must be positive, got (%v, %v)", initialA, initialB)
	}
	if !isPositive(priceRatio) {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "price ratio must be positive, got %v", priceRatio)
	}
	if !(snap.TotalLPTokens > 0) {
		return 0, errorsmod.Wrap(types.ErrInsufficientLiquidity, "pool has no LP supply")
	}

	lpShare := math.Sqrt(initialA*initialB) / snap.TotalLPTokens
	currentA := snap.ReserveA * lpShare
	currentB := snap.ReserveB * lpShare

	currentValue := currentA + currentB/priceRatio
	initialValue := initialA + initialB/priceRatio

	return (currentValue - initialValue) / initialValue * 100, nil
}

// ValueAtRisk returns the loss not exceeded with the given confidence, over the
// simulated returns. The pool is valued at reserveA + reserveB and a return r costs
// value*r*sqrt(timeHorizon).
func ValueAtRisk(snap types.PoolSnapshot, returns []float64, confidence float64, timeHorizon int) (float64, error) {
	if len(returns) == 0 {
		return 0, errorsmod.Wrap(types.ErrInvalidParameter, "no simulated returns")
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "confidence level must be in (0, 1), got %v", confidence)
	}
	if timeHorizon < 1 {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "time horizon must be at least 1, got %d", timeHorizon)
	}

	value := snap.TotalValue()
	scale := math.Sqrt(float64(timeHorizon))
	losses := make([]float64, len(returns))
	for i, r := range returns {
		losses[i] = -value * r * scale
	}
	return percentile(losses, confidence), nil
}

// StopLossTriggered reports whether the pool value has fallen by at least
// stopLossPct relative to initialValue. A nil initialValue uses the current value,
// which can never trigger.
func StopLossTriggered(snap types.PoolSnapshot, stopLossPct float64, initialValue *float64) (bool, error) {
	if !(stopLossPct >= 0) || math.IsInf(stopLossPct, 0) {
		return false, errorsmod.Wrapf(types.ErrInvalidParameter, "stop loss percentage must be non-negative, got %v", stopLossPct)
	}
	current := snap.TotalValue()
	initial := current
	if initialValue != nil {
		initial = *initialValue
	}
	if !isPositive(initial) {
		return false, errorsmod.Wrapf(types.ErrInvalidParameter, "initial value must be positive, got %v", initial)
	}
	drop := (initial - current) / initial
	return drop >= stopLossPct, nil
}

// PositionSizing splits riskFactor times the pool value across the two tokens in
// proportion to the reserves.
func PositionSizing(snap types.PoolSnapshot, riskFactor float64) (sizeA, sizeB float64, err error) {
	if !(riskFactor >= 0 && riskFactor <= 1) {
		return 0, 0, errorsmod.Wrapf(types.ErrInvalidParameter, "risk factor must be in [0, 1], got %v", riskFactor)
	}
	total := snap.TotalValue()
	if !(total > 0) {
		return 0, 0, errorsmod.Wrap(types.ErrInsufficientLiquidity, "pool has no value")
	}
	size := total * riskFactor
	return size * snap.ReserveA / total, size * snap.ReserveB / total, nil
}

// percentile interpolates linearly between the closest ranks at position q*(n-1)
// of the sorted values.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
