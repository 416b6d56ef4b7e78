package risk

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog"

	"github.com/elys-network/amm/internal/logger"
	"github.com/elys-network/amm/internal/types"
)

// PoolReader is the view of the AMM the risk manager needs.
type PoolReader interface {
	GetPool(tokenA, tokenB string) (types.PoolSnapshot, error)
	CalculateFeesEarned() map[string]float64
}

// VaROptions overrides the default Monte Carlo settings. Zero fields take the
// manager's defaults.
type VaROptions struct {
	ConfidenceLevel float64
	TimeHorizon     int
	NumSimulations  int
}

// RiskManager evaluates risk figures against live pool snapshots. Every method
// reads a single snapshot, so results are consistent with one pool state.
type RiskManager struct {
	logger zerolog.Logger
	pools  PoolReader
	model  ReturnModel
	params types.RiskParameters
}

// NewRiskManager creates a manager reading pools from the given registry.
func NewRiskManager(pools PoolReader, model ReturnModel, params types.RiskParameters) (*RiskManager, error) {
	if pools == nil {
		return nil, errorsmod.Wrap(types.ErrInvalidParameter, "pool reader cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidParameter, err.Error())
	}
	if model == nil {
		normal, err := NewNormalModel(params.MeanReturn, params.StdReturn, nil)
		if err != nil {
			return nil, err
		}
		model = normal
	}
	return &RiskManager{
		logger: logger.GetForComponent("risk_manager"),
		pools:  pools,
		model:  model,
		params: params,
	}, nil
}

// CalculateTotalFeesEarned returns the accrued fees per token symbol.
func (m *RiskManager) CalculateTotalFeesEarned() map[string]float64 {
	return m.pools.CalculateFeesEarned()
}

// CalculateLiquidityReturns returns the percentage return of an initial investment
// of (initialA, initialB) in the tokenA/tokenB pool at priceRatio.
func (m *RiskManager) CalculateLiquidityReturns(tokenA, tokenB string, initialA, initialB, priceRatio float64) (float64, error) {
	snap, err := m.pools.GetPool(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	return LiquidityReturns(snap, initialA, initialB, priceRatio)
}

// CalculateVaR runs a Monte Carlo value-at-risk estimate for the pool.
func (m *RiskManager) CalculateVaR(tokenA, tokenB string, opts VaROptions) (float64, error) {
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = m.params.ConfidenceLevel
	}
	if opts.TimeHorizon == 0 {
		opts.TimeHorizon = 1
	}
	if opts.NumSimulations == 0 {
		opts.NumSimulations = m.params.NumSimulations
	}
	if opts.NumSimulations < 0 {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "number of simulations must be positive, got %d", opts.NumSimulations)
	}

	snap, err := m.pools.GetPool(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	returns := m.model.Sample(opts.NumSimulations)
	valueAtRisk, err := ValueAtRisk(snap, returns, opts.ConfidenceLevel, opts.TimeHorizon)
	if err != nil {
		return 0, err
	}

	m.logger.Debug().
		Str("pool", snap.Key().String()).
		Float64("confidence", opts.ConfidenceLevel).
		Int("horizon", opts.TimeHorizon).
		Int("simulations", opts.NumSimulations).
		Float64("var", valueAtRisk).
		Msg("Value at risk computed")
	return valueAtRisk, nil
}

// ImplementStopLoss reports whether the pool has lost at least stopLossPct of
// initialValue. A nil initialValue compares against the current value.
func (m *RiskManager) ImplementStopLoss(tokenA, tokenB string, stopLossPct float64, initialValue *float64) (bool, error) {
	snap, err := m.pools.GetPool(tokenA, tokenB)
	if err != nil {
		return false, err
	}
	triggered, err := StopLossTriggered(snap, stopLossPct, initialValue)
	if err != nil {
		return false, err
	}
	if triggered {
		m.logger.Warn().
			Str("pool", snap.Key().String()).
			Float64("value", snap.TotalValue()).
			Float64("stopLossPct", stopLossPct).
			Msg("Stop loss triggered")
	}
	return triggered, nil
}

// DynamicPositionSizing returns the position in tokenA and tokenB that risks
// riskFactor of the pool value.
func (m *RiskManager) DynamicPositionSizing(tokenA, tokenB string, riskFactor float64) (sizeA, sizeB float64, err error) {
	snap, err := m.pools.GetPool(tokenA, tokenB)
	if err != nil {
		return 0, 0, err
	}
	return PositionSizing(snap, riskFactor)
}
