/*
This file contains common utility functions for converting between float64 pool
amounts and the fixed-point decimals used by the transaction ledger.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil        = errors.New("amount is nil")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// Float64ToLegacyDec converts a float64 to an 18-decimal fixed-point value. Digits
// beyond the 18th decimal are rounded away.
func Float64ToLegacyDec(amount float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount == 0 {
		return sdkmath.LegacyZeroDec(), nil
	}

	// Use string conversion to avoid floating point precision issues
	amountStr := strconv.FormatFloat(amount, 'f', sdkmath.LegacyPrecision, 64)
	dec, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}
	return dec, nil
}

// MustFloat64ToLegacyDec is Float64ToLegacyDec for values already known to be
// finite; non-finite input yields zero.
func MustFloat64ToLegacyDec(amount float64) sdkmath.LegacyDec {
	dec, err := Float64ToLegacyDec(amount)
	if err != nil {
		return sdkmath.LegacyZeroDec()
	}
	return dec
}

// LegacyDecToFloat64 converts a fixed-point decimal back to float64.
func LegacyDecToFloat64(amount sdkmath.LegacyDec) (float64, error) {
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	result, err := amount.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}
	return result, nil
}
