/*

This file contains the tunable parameters of the AMM and the risk manager.

*/

package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// AMMParameters holds the fee and incentive tuning of the pool registry.
type AMMParameters struct {
	DefaultFee          float64       `json:"default_fee"`           // Fee assigned to newly created pools (0.003 = 0.3%).
	VolumeThreshold     float64       `json:"volume_threshold"`      // Recent volume at which the fee volume factor saturates.
	MaxImbalance        float64       `json:"max_imbalance"`         // |A/B - 1| at which the fee imbalance factor saturates.
	MaxFee              float64       `json:"max_fee"`               // Upper bound for dynamically adjusted fees.
	BalanceMaxIncentive float64       `json:"balance_max_incentive"` // Cap on the rebalancing incentive fraction.
	DepositTolerance    float64       `json:"deposit_tolerance"`     // Relative tolerance of the deposit ratio check.
	FeeVolumeWindow     time.Duration `json:"fee_volume_window"`     // Window used by fee adjustment when estimating recent volume.
}

// Validate checks the parameters for internal consistency.
func (p AMMParameters) Validate() error {
	var errs []error
	if !inRange(p.DefaultFee, 0, 1) {
		errs = append(errs, fmt.Errorf("default_fee must be in [0, 1), got %v", p.DefaultFee))
	}
	if !inRange(p.MaxFee, 0, 1) {
		errs = append(errs, fmt.Errorf("max_fee must be in [0, 1), got %v", p.MaxFee))
	}
	if p.MaxFee < p.DefaultFee {
		errs = append(errs, fmt.Errorf("max_fee (%v) must not be below default_fee (%v)", p.MaxFee, p.DefaultFee))
	}
	if !positive(p.VolumeThreshold) {
		errs = append(errs, fmt.Errorf("volume_threshold must be positive, got %v", p.VolumeThreshold))
	}
	if !positive(p.MaxImbalance) {
		errs = append(errs, fmt.Errorf("max_imbalance must be positive, got %v", p.MaxImbalance))
	}
	if !inRange(p.BalanceMaxIncentive, 0, 1) {
		errs = append(errs, fmt.Errorf("balance_max_incentive must be in [0, 1), got %v", p.BalanceMaxIncentive))
	}
	if !inRange(p.DepositTolerance, 0, 1) {
		errs = append(errs, fmt.Errorf("deposit_tolerance must be in [0, 1), got %v", p.DepositTolerance))
	}
	if p.FeeVolumeWindow <= 0 {
		errs = append(errs, fmt.Errorf("fee_volume_window must be positive, got %v", p.FeeVolumeWindow))
	}
	return errors.Join(errs...)
}

// RiskParameters configures the return model and default Monte Carlo settings.
type RiskParameters struct {
	MeanReturn      float64 `json:"mean_return"`      // Mean of the simulated per-period return.
	StdReturn       float64 `json:"std_return"`       // Standard deviation of the simulated per-period return.
	ConfidenceLevel float64 `json:"confidence_level"` // Default VaR confidence, e.g. 0.95.
	NumSimulations  int     `json:"num_simulations"`  // Default number of Monte Carlo draws.
	Seed            uint64  `json:"seed"`             // Seed of the return model; 0 picks a random seed.
}

// Validate checks the parameters for internal consistency.
func (p RiskParameters) Validate() error {
	var errs []error
	if math.IsNaN(p.MeanReturn) || math.IsInf(p.MeanReturn, 0) {
		errs = append(errs, fmt.Errorf("mean_return must be finite, got %v", p.MeanReturn))
	}
	if !positive(p.StdReturn) {
		errs = append(errs, fmt.Errorf("std_return must be positive, got %v", p.StdReturn))
	}
	if !(p.ConfidenceLevel > 0 && p.ConfidenceLevel < 1) {
		errs = append(errs, fmt.Errorf("confidence_level must be in (0, 1), got %v", p.ConfidenceLevel))
	}
	if p.NumSimulations <= 0 {
		errs = append(errs, fmt.Errorf("num_simulations must be positive, got %d", p.NumSimulations))
	}
	return errors.Join(errs...)
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v < hi
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
