/*

This file contains the default parameters for the AMM and the risk manager.

Every value can be overridden through the environment (see General.go) or through an
active parameter set stored in the database.

*/

package config

import (
	"time"

	"github.com/elys-network/amm/internal/types"
)

// DefaultAMMParameters provides the baseline fee and incentive tuning of the registry.
var DefaultAMMParameters = types.AMMParameters{
	DefaultFee: 0.003, // 0.3% swap fee for new pools.
	// Rationale: The conventional constant-product fee tier.

	VolumeThreshold: 1_000_000, // Volume at which the fee volume factor saturates.
	// Rationale: Below this, pools are quiet enough that the base fee is adequate.

	MaxImbalance: 0.1, // |A/B - 1| at which the imbalance factor saturates.
	// Rationale: A 10% skew already exposes LPs to meaningful arbitrage flow.

	MaxFee: 0.01, // Never charge more than 1%.
	// Rationale: Above 1% traders route elsewhere and volume collapses.

	BalanceMaxIncentive: 0.02, // Up to 2% extra LP tokens for rebalancing deposits.

	DepositTolerance: 1e-3, // Deposits must match the pool ratio within 0.1%.

	FeeVolumeWindow: time.Hour, // Recent volume window used by fee adjustment.
}

// DefaultRiskParameters provides the baseline return model and Monte Carlo settings.
var DefaultRiskParameters = types.RiskParameters{
	MeanReturn: 0.0001, // Slight positive drift per period.

	StdReturn: 0.02, // 2% per-period standard deviation.
	// Rationale: Typical daily volatility of large-cap crypto pairs.

	ConfidenceLevel: 0.95,

	NumSimulations: 10_000,
	// Rationale: Keeps the 95th percentile stable to well under 1% between runs.

	Seed: 0, // Random seed on every start.
}

// DefaultParamsConfigName is the name under which parameter sets are stored.
const DefaultParamsConfigName = "default_amm"
