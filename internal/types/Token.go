/*

This is a custom type for token prices tracked by the market simulation, the
price fetcher and volatility analysis.

*/

package types

import "time"

// PriceData holds historical price info
type PriceData struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
