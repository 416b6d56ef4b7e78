package amm

import (
	"math"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/elys-network/amm/internal/types"
)

// CalculateRecentVolume returns the volume oracle's estimate for the pair over window.
func (a *AMM) CalculateRecentVolume(tokenA, tokenB string, window time.Duration) (float64, error) {
	if window <= 0 {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "volume window must be positive, got %v", window)
	}
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return a.volume.RecentVolume(entry.key, window), nil
}

// AdjustFee raises the pool fee with recent volume and reserve imbalance and returns
// the new fee:
//
//	volume_factor    = min(volume / VolumeThreshold, 1)
//	imbalance_factor = min(|reserveA/reserveB - 1| / MaxImbalance, 1)
//	fee              = min(fee * (1+volume_factor) * (1+imbalance_factor), MaxFee)
//
// The imbalance is measured on the canonical sides, so the result does not depend
// on argument order. Fees never decrease.
func (a *AMM) AdjustFee(tokenA, tokenB string) (float64, error) {
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	volume := a.volume.RecentVolume(entry.key, a.params.FeeVolumeWindow)
	before := entry.state()
	newFee := DynamicFee(before, volume, a.params)

	if err := entry.pool.SetFee(newFee); err != nil {
		return 0, err
	}

	state := entry.state()
	a.emit(Event{
		Type:  types.TxFeeAdjustment,
		Pool:  entry.key,
		Fee:   newFee,
		State: state,
	})

	a.logger.Info().
		Str("pool", entry.key.String()).
		Float64("volume", volume).
		Float64("oldFee", before.Fee).
		Float64("newFee", newFee).
		Msg("Pool fee adjusted")
	return newFee, nil
}

// DynamicFee computes the fee AdjustFee would set for a pool given its recent volume.
func DynamicFee(snap types.PoolSnapshot, volume float64, params types.AMMParameters) float64 {
	volumeFactor := math.Min(math.Max(volume, 0)/params.VolumeThreshold, 1)
	imbalanceFactor := math.Min(imbalance(snap.ReserveA, snap.ReserveB)/params.MaxImbalance, 1)

	newFee := math.Min(snap.Fee*(1+volumeFactor)*(1+imbalanceFactor), params.MaxFee)
	if newFee < snap.Fee {
		newFee = snap.Fee
	}
	return newFee
}

// CalculateRebalancingIncentive returns the incentive fraction a deposit of amountA
// of tokenA and amountB of tokenB would earn. Deposits that do not move the reserve
// ratio toward 1:1 earn nothing.
func (a *AMM) CalculateRebalancingIncentive(tokenA, tokenB string, amountA, amountB float64) (float64, error) {
	if err := validateDeposit(amountA, amountB); err != nil {
		return 0, err
	}
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	depositA, depositB := orient(entry.key, tokenA, amountA, amountB)
	return RebalancingIncentive(entry.state(), depositA, depositB, a.params.BalanceMaxIncentive), nil
}

// AddLiquidityWithIncentive computes the rebalancing incentive on the pre-deposit
// reserves and mints (1 + incentive) times the regular LP amount. Both steps run
// under one lock so the incentive matches the state the deposit lands on.
func (a *AMM) AddLiquidityWithIncentive(tokenA, tokenB string, amountA, amountB float64) (float64, error) {
	if err := validateDeposit(amountA, amountB); err != nil {
		return 0, err
	}
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	depositA, depositB := orient(entry.key, tokenA, amountA, amountB)
	incentive := RebalancingIncentive(entry.state(), depositA, depositB, a.params.BalanceMaxIncentive)

	minted, err := a.addLiquidityLocked(entry, tokenA, tokenB, amountA, amountB, incentive)
	if err != nil {
		return 0, err
	}

	a.logger.Debug().
		Str("pool", entry.key.String()).
		Float64("incentive", incentive).
		Float64("minted", minted).
		Msg("Liquidity added with incentive")
	return minted, nil
}

// RebalancingIncentive is the pure form of CalculateRebalancingIncentive over
// canonical deposit amounts:
//
//	improvement = |A/B - 1| - |(A+a)/(B+b) - 1|
//	incentive   = min(maxIncentive * improvement / |A/B - 1|, maxIncentive)   if improvement > 0
func RebalancingIncentive(snap types.PoolSnapshot, depositA, depositB, maxIncentive float64) float64 {
	current := imbalance(snap.ReserveA, snap.ReserveB)
	after := imbalance(snap.ReserveA+depositA, snap.ReserveB+depositB)
	improvement := current - after
	if !(improvement > 0) {
		return 0
	}
	return math.Min(maxIncentive*improvement/current, maxIncentive)
}

func imbalance(reserveA, reserveB float64) float64 {
	return math.Abs(reserveA/reserveB - 1)
}

func validateDeposit(amountA, amountB float64) error {
	for _, v := range []float64{amountA, amountB} {
		if !(v > 0) || math.IsInf(v, 0) {
			return errorsmod.Wrapf(types.ErrInvalidAmount, "deposit amounts must be positive, got (%v, %v)", amountA, amountB)
		}
	}
	return nil
}
