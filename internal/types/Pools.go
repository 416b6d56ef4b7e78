/*

This is a custom type for pools which contains the state shared between the AMM, the risk manager and the web layer.

*/

package types

import "strings"

// PoolKey identifies a pool by its unordered token pair. TokenA always sorts before TokenB,
// so ("ETH","USDC") and ("USDC","ETH") resolve to the same key.
type PoolKey struct {
	TokenA string `json:"token_a"`
	TokenB string `json:"token_b"`
}

// NewPoolKey builds the canonical key for a token pair.
func NewPoolKey(tokenA, tokenB string) PoolKey {
	if tokenB < tokenA {
		tokenA, tokenB = tokenB, tokenA
	}
	return PoolKey{TokenA: tokenA, TokenB: tokenB}
}

// String renders the key as "A-B", e.g. "ETH-USDC".
func (k PoolKey) String() string {
	return k.TokenA + "-" + k.TokenB
}

// Has reports whether token is one of the two sides of the pool.
func (k PoolKey) Has(token string) bool {
	return token == k.TokenA || token == k.TokenB
}

// ParsePoolKey is the inverse of String.
func ParsePoolKey(s string) (PoolKey, bool) {
	a, b, ok := strings.Cut(s, "-")
	if !ok || a == "" || b == "" {
		return PoolKey{}, false
	}
	return NewPoolKey(a, b), true
}

// PoolSnapshot is a point-in-time copy of a pool's accounting. The A/B fields
// follow TokenA/TokenB, which are the canonical sides unless the snapshot was
// re-oriented for a caller with Oriented.
type PoolSnapshot struct {
	TokenA        string  `json:"token_a,omitempty"`
	TokenB        string  `json:"token_b,omitempty"`
	ReserveA      float64 `json:"token_a_reserve"`
	ReserveB      float64 `json:"token_b_reserve"`
	K             float64 `json:"k"`               // Invariant as of the last liquidity change
	Fee           float64 `json:"fee"`             // Swap fee fraction, e.g. 0.003
	TotalFeesA    float64 `json:"total_fees_a"`    // Fees collected on swaps paying in TokenA
	TotalFeesB    float64 `json:"total_fees_b"`    // Fees collected on swaps paying in TokenB
	TotalLPTokens float64 `json:"total_lp_tokens"` // Outstanding LP supply
}

// Key returns the canonical key of the pair named by the snapshot.
func (s PoolSnapshot) Key() PoolKey {
	return NewPoolKey(s.TokenA, s.TokenB)
}

// TotalValue is the nominal value of the pool: the plain sum of both reserves.
func (s PoolSnapshot) TotalValue() float64 {
	return s.ReserveA + s.ReserveB
}

// TotalFees is the plain sum of fees collected on both sides.
func (s PoolSnapshot) TotalFees() float64 {
	return s.TotalFeesA + s.TotalFeesB
}

// ExchangeRate is the spot price of TokenA expressed in TokenB.
func (s PoolSnapshot) ExchangeRate() float64 {
	return s.ReserveB / s.ReserveA
}

// Oriented returns the snapshot with first on the A side. A snapshot whose
// TokenA already equals first is returned unchanged.
func (s PoolSnapshot) Oriented(first string) PoolSnapshot {
	if s.TokenA == first {
		return s
	}
	return PoolSnapshot{
		TokenA:        s.TokenB,
		TokenB:        s.TokenA,
		ReserveA:      s.ReserveB,
		ReserveB:      s.ReserveA,
		K:             s.K,
		Fee:           s.Fee,
		TotalFeesA:    s.TotalFeesB,
		TotalFeesB:    s.TotalFeesA,
		TotalLPTokens: s.TotalLPTokens,
	}
}
