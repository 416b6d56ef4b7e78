// Package pool implements the accounting of a single constant-product liquidity pool.
package pool

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/elys-network/amm/internal/logger"
	"github.com/elys-network/amm/internal/types"
)

const (
	// DefaultFee is the swap fee of a pool created without an explicit fee.
	DefaultFee = 0.003
	// DefaultTolerance is the relative tolerance of the deposit ratio check.
	DefaultTolerance = 1e-3
)

var poolLogger = logger.GetForComponent("liquidity_pool")

// LiquidityPool holds two reserves priced on the curve x*y=k.
//
// k is captured when liquidity changes and is deliberately left stale across swaps:
// the fee portion of every input stays in the reserves, so the live product grows
// above k and swap outputs are quoted against the last liquidity snapshot.
//
// A LiquidityPool is not safe for concurrent use; the registry serializes access.
type LiquidityPool struct {
	reserveA      float64
	reserveB      float64
	k             float64
	fee           float64
	totalFeesA    float64
	totalFeesB    float64
	totalLPTokens float64
}

// New creates a pool seeded with the given reserves. The initial LP supply is
// the geometric mean of the reserves.
func New(reserveA, reserveB, fee float64) (*LiquidityPool, error) {
	if !isPositive(reserveA) || !isPositive(reserveB) {
		return nil, errorsmod.Wrapf(types.ErrInvalidAmount, "initial reserves must be positive, got (%v, %v)", reserveA, reserveB)
	}
	if err := validateFee(fee); err != nil {
		return nil, err
	}
	return &LiquidityPool{
		reserveA:      reserveA,
		reserveB:      reserveB,
		k:             reserveA * reserveB,
		fee:           fee,
		totalLPTokens: math.Sqrt(reserveA * reserveB),
	}, nil
}

// AddLiquidity deposits both tokens in the current reserve ratio and returns the
// LP tokens minted. The deposit is rejected when amountB/amountA is not within
// tolerance (relative) of reserveB/reserveA.
func (p *LiquidityPool) AddLiquidity(amountA, amountB, tolerance float64) (float64, error) {
	return p.AddLiquidityWithBonus(amountA, amountB, 0, tolerance)
}

// AddLiquidityWithBonus behaves like AddLiquidity but scales the minted amount
// by (1 + bonus). The bonus tokens are part of the outstanding supply.
func (p *LiquidityPool) AddLiquidityWithBonus(amountA, amountB, bonus, tolerance float64) (float64, error) {
	if !isPositive(amountA) || !isPositive(amountB) {
		return 0, errorsmod.Wrapf(types.ErrInvalidAmount, "deposit amounts must be positive, got (%v, %v)", amountA, amountB)
	}
	if !(tolerance >= 0) || math.IsInf(tolerance, 0) {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "tolerance must be non-negative, got %v", tolerance)
	}
	if !(bonus >= 0) || math.IsInf(bonus, 0) {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "bonus must be non-negative, got %v", bonus)
	}

	poolRatio := p.reserveB / p.reserveA
	depositRatio := amountB / amountA
	if !isClose(depositRatio, poolRatio, tolerance) {
		return 0, errorsmod.Wrapf(types.ErrImbalancedDeposit, "deposit ratio %.6g, pool ratio %.6g", depositRatio, poolRatio)
	}

	minted := (amountA / p.reserveA) * p.totalLPTokens * (1 + bonus)

	p.reserveA += amountA
	p.reserveB += amountB
	p.k = p.reserveA * p.reserveB
	p.totalLPTokens += minted

	poolLogger.Debug().
		Float64("amount_a", amountA).
		Float64("amount_b", amountB).
		Float64("bonus", bonus).
		Float64("minted", minted).
		Msg("Liquidity added")

	return minted, nil
}

// RemoveLiquidity burns lpTokens and returns the proportional share of both
// reserves. Burning the entire supply is refused so that the pool never drains.
func (p *LiquidityPool) RemoveLiquidity(lpTokens float64) (amountA, amountB float64, err error) {
	if !isPositive(lpTokens) {
		return 0, 0, errorsmod.Wrapf(types.ErrInvalidAmount, "LP tokens must be positive, got %v", lpTokens)
	}
	if lpTokens > p.totalLPTokens {
		return 0, 0, errorsmod.Wrapf(types.ErrInsufficientShare, "requested %v, supply %v", lpTokens, p.totalLPTokens)
	}
	if lpTokens == p.totalLPTokens {
		return 0, 0, errorsmod.Wrap(types.ErrInsufficientShare, "cannot burn the entire LP supply")
	}

	share := lpTokens / p.totalLPTokens
	amountA = p.reserveA * share
	amountB = p.reserveB * share
	if !(p.reserveA-amountA > 0) || !(p.reserveB-amountB > 0) {
		return 0, 0, errorsmod.Wrap(types.ErrInsufficientLiquidity, "withdrawal would empty a reserve")
	}

	p.reserveA -= amountA
	p.reserveB -= amountB
	p.k = p.reserveA * p.reserveB
	p.totalLPTokens -= lpTokens

	poolLogger.Debug().
		Float64("lp_tokens", lpTokens).
		Float64("amount_a", amountA).
		Float64("amount_b", amountB).
		Msg("Liquidity removed")

	return amountA, amountB, nil
}

// QuoteAToB returns the output of swapping amountIn of token A without mutating the pool.
func (p *LiquidityPool) QuoteAToB(amountIn float64) (float64, error) {
	return p.quote(amountIn, p.reserveA, p.reserveB)
}

// QuoteBToA returns the output of swapping amountIn of token B without mutating the pool.
func (p *LiquidityPool) QuoteBToA(amountIn float64) (float64, error) {
	return p.quote(amountIn, p.reserveB, p.reserveA)
}

func (p *LiquidityPool) quote(amountIn, reserveIn, reserveOut float64) (float64, error) {
	if !isPositive(amountIn) {
		return 0, errorsmod.Wrapf(types.ErrInvalidAmount, "swap input must be positive, got %v", amountIn)
	}
	effectiveIn := amountIn * (1 - p.fee)
	amountOut := reserveOut - p.k/(reserveIn+effectiveIn)
	if !(amountOut > 0) {
		return 0, errorsmod.Wrapf(types.ErrInsufficientLiquidity, "swap of %v yields %v", amountIn, amountOut)
	}
	if !(amountOut < reserveOut) {
		return 0, errorsmod.Wrapf(types.ErrInsufficientLiquidity, "swap of %v would drain the output reserve", amountIn)
	}
	return amountOut, nil
}

// SwapAToB sells amountIn of token A for token B. The whole input, fee included,
// is added to reserve A and the fee is accrued to the A side.
func (p *LiquidityPool) SwapAToB(amountIn float64) (float64, error) {
	amountOut, err := p.QuoteAToB(amountIn)
	if err != nil {
		return 0, err
	}
	p.reserveA += amountIn
	p.reserveB -= amountOut
	p.totalFeesA += amountIn * p.fee
	return amountOut, nil
}

// SwapBToA sells amountIn of token B for token A.
func (p *LiquidityPool) SwapBToA(amountIn float64) (float64, error) {
	amountOut, err := p.QuoteBToA(amountIn)
	if err != nil {
		return 0, err
	}
	p.reserveB += amountIn
	p.reserveA -= amountOut
	p.totalFeesB += amountIn * p.fee
	return amountOut, nil
}

// ExchangeRate is reserveB / reserveA.
func (p *LiquidityPool) ExchangeRate() float64 {
	return p.reserveB / p.reserveA
}

// Fee returns the current swap fee.
func (p *LiquidityPool) Fee() float64 {
	return p.fee
}

// SetFee replaces the swap fee.
func (p *LiquidityPool) SetFee(fee float64) error {
	if err := validateFee(fee); err != nil {
		return err
	}
	p.fee = fee
	return nil
}

// State returns the pool accounting. The token names are left empty; the
// registry fills them in.
func (p *LiquidityPool) State() types.PoolSnapshot {
	return types.PoolSnapshot{
		ReserveA:      p.reserveA,
		ReserveB:      p.reserveB,
		K:             p.k,
		Fee:           p.fee,
		TotalFeesA:    p.totalFeesA,
		TotalFeesB:    p.totalFeesB,
		TotalLPTokens: p.totalLPTokens,
	}
}

// ImpermanentLoss returns 2*sqrt(r)/(1+sqrt(r)) - 1 for a price ratio change r.
// The value is zero at r = 1, and r and 1/r give the same magnitude with
// opposite sign.
func ImpermanentLoss(priceRatioChange float64) (float64, error) {
	if !isPositive(priceRatioChange) {
		return 0, errorsmod.Wrapf(types.ErrInvalidAmount, "price ratio change must be positive, got %v", priceRatioChange)
	}
	sqrtR := math.Sqrt(priceRatioChange)
	return 2*sqrtR/(1+sqrtR) - 1, nil
}

func validateFee(fee float64) error {
	if !(fee >= 0 && fee < 1) {
		return errorsmod.Wrapf(types.ErrInvalidParameter, "fee must be in [0, 1), got %v", fee)
	}
	return nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// isClose reports |a-b| <= tol*max(|a|,|b|).
func isClose(a, b, tol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}
