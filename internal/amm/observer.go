package amm

import (
	"time"

	"github.com/elys-network/amm/internal/types"
)

// Event describes a completed pool mutation.
//
// TokenA/TokenB and AmountA/AmountB follow the caller's order: the deposited or
// withdrawn amounts for liquidity events, the input and output for swaps. State is
// the canonical snapshot of the pool after the mutation.
type Event struct {
	Type     types.TransactionType
	Pool     types.PoolKey
	Time     time.Time
	TokenA   string
	TokenB   string
	AmountA  float64
	AmountB  float64
	LPTokens float64
	Fee      float64
	State    types.PoolSnapshot
}

// Observer receives pool events. Observe is called while the pool is locked, so
// events of one pool arrive in order. Implementations must not call back into the AMM.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }
