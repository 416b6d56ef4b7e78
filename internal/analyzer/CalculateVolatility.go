package analyzer

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/elys-network/amm/internal/types"
)

// ErrInsufficientData indicates that not enough data points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// CalculateVolatility calculates the annualized historical volatility from a series of price data.
// It uses logarithmic returns and their population standard deviation.
// The annualizationFactor should match the frequency of the data (e.g., 8760 for hourly, 365 for daily,
// 1 for the raw per-step volatility of a simulation).
func CalculateVolatility(prices []types.PriceData, annualizationFactor float64) (float64, error) {
	if !(annualizationFactor > 0) {
		return 0, errors.New("annualization factor must be positive")
	}
	logReturns, err := LogReturns(prices)
	if err != nil {
		return 0, err
	}

	_, stdDev := stat.PopMeanStdDev(logReturns, nil)
	return stdDev * math.Sqrt(annualizationFactor), nil
}

// LogReturns returns ln(p[i]/p[i-1]) over the chronologically sorted series. Pairs
// with a non-positive price are skipped.
func LogReturns(prices []types.PriceData) ([]float64, error) {
	return returns(prices, func(prev, cur float64) float64 {
		return math.Log(cur / prev)
	})
}

// SimpleReturns returns p[i]/p[i-1] - 1 over the chronologically sorted series.
// Pairs with a non-positive price are skipped.
func SimpleReturns(prices []types.PriceData) ([]float64, error) {
	return returns(prices, func(prev, cur float64) float64 {
		return cur/prev - 1
	})
}

func returns(prices []types.PriceData, f func(prev, cur float64) float64) ([]float64, error) {
	n := len(prices)
	if n < 2 {
		return nil, ErrInsufficientData // Need at least two points to calculate one return
	}

	sorted := append([]types.PriceData(nil), prices...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		previousPrice := sorted[i-1].Price
		currentPrice := sorted[i].Price
		if previousPrice <= 0 || currentPrice <= 0 {
			continue
		}
		out = append(out, f(previousPrice, currentPrice))
	}

	if len(out) == 0 {
		return nil, ErrInsufficientData // Every pair had a non-positive price
	}
	return out, nil
}
