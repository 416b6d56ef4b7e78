package state

import (
	"sync"

	"cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/types"
	"github.com/elys-network/amm/internal/utils"
)

// TransactionHistory keeps the in-memory transaction log of every pool. It
// implements amm.Observer and is safe for concurrent use.
type TransactionHistory struct {
	mu      sync.RWMutex
	records map[types.PoolKey][]types.TransactionRecord
	// Per-pool cap; the oldest records are dropped first. Zero keeps everything.
	limit int
}

// NewTransactionHistory creates an empty history keeping at most limit records per pool.
func NewTransactionHistory(limit int) *TransactionHistory {
	return &TransactionHistory{
		records: make(map[types.PoolKey][]types.TransactionRecord),
		limit:   limit,
	}
}

// Observe implements amm.Observer.
func (h *TransactionHistory) Observe(ev amm.Event) {
	if ev.Type == types.TxCreatePool {
		return
	}
	record := types.TransactionRecord{
		ID:        uuid.New(),
		Pool:      ev.Pool.String(),
		Type:      ev.Type,
		Timestamp: ev.Time,
		TokenA:    ev.TokenA,
		TokenB:    ev.TokenB,
		AmountA:   utils.MustFloat64ToLegacyDec(ev.AmountA),
		AmountB:   utils.MustFloat64ToLegacyDec(ev.AmountB),
		LPTokens:  utils.MustFloat64ToLegacyDec(ev.LPTokens),
		Fee:       utils.MustFloat64ToLegacyDec(ev.Fee),
	}
	h.Append(ev.Pool, record)
}

// Append adds a record to the pool's log.
func (h *TransactionHistory) Append(key types.PoolKey, record types.TransactionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := append(h.records[key], record)
	if h.limit > 0 && len(records) > h.limit {
		records = append(records[:0:0], records[len(records)-h.limit:]...)
	}
	h.records[key] = records
}

// Get returns a copy of the pool's log, oldest first. Unknown pools have an empty log.
func (h *TransactionHistory) Get(tokenA, tokenB string) []types.TransactionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	records := h.records[types.NewPoolKey(tokenA, tokenB)]
	return append([]types.TransactionRecord{}, records...)
}

// SwapVolume sums the swap inputs recorded for the pool, per input token.
func (h *TransactionHistory) SwapVolume(tokenA, tokenB string) map[string]math.LegacyDec {
	volume := make(map[string]math.LegacyDec)
	for _, rec := range h.Get(tokenA, tokenB) {
		if rec.Type != types.TxSwap {
			continue
		}
		total, ok := volume[rec.TokenA]
		if !ok {
			total = math.LegacyZeroDec()
		}
		volume[rec.TokenA] = total.Add(rec.AmountA)
	}
	return volume
}
