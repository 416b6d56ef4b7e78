/*

Transaction records kept per pool. Amounts are stored as fixed-point decimals so the
history can be summed and compared without float drift.

*/

package types

import (
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
)

// TransactionType names a pool mutation.
type TransactionType string

const (
	TxCreatePool      TransactionType = "create_pool"
	TxAddLiquidity    TransactionType = "add_liquidity"
	TxRemoveLiquidity TransactionType = "remove_liquidity"
	TxSwap            TransactionType = "swap"
	TxFeeAdjustment   TransactionType = "fee_adjustment"
)

// TransactionRecord is a single entry of a pool's history.
//
// For liquidity records TokenA/TokenB follow the caller's order and LPTokens holds the
// minted or burned supply. For swaps TokenA is the input token and TokenB the output
// token. Fee adjustments only carry Fee.
type TransactionRecord struct {
	ID        uuid.UUID       `json:"id"`
	Pool      string          `json:"pool"` // Canonical pool key, e.g. "ETH-USDC"
	Type      TransactionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`

	TokenA   string         `json:"token_a,omitempty"`
	TokenB   string         `json:"token_b,omitempty"`
	AmountA  math.LegacyDec `json:"amount_a"`
	AmountB  math.LegacyDec `json:"amount_b"`
	LPTokens math.LegacyDec `json:"lp_tokens"`
	Fee      math.LegacyDec `json:"fee"`
}
