package amm

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/elys-network/amm/internal/types"
)

// VolumeOracle estimates the recent trading volume of a pool.
type VolumeOracle interface {
	// RecentVolume returns the volume estimate over window. Implementations may
	// update internal per-pool state on every call.
	RecentVolume(key types.PoolKey, window time.Duration) float64
	// RecordTrade is notified of every executed swap with its input amount.
	RecordTrade(key types.PoolKey, amountIn float64)
}

const (
	syntheticMinSample = 1_000
	syntheticMaxSample = 100_000
)

// SyntheticVolumeOracle produces placeholder volume figures. Each call draws a
// uniform sample in [1000, 100000) and adds it to a running total that resets
// once more than a window has passed since the previous call. Inside a window the
// total is scaled to the full window as total*window/elapsed.
type SyntheticVolumeOracle struct {
	mu      sync.Mutex
	rng     *rand.Rand
	now     func() time.Time
	last    map[types.PoolKey]time.Time
	running map[types.PoolKey]float64
}

// NewSyntheticVolumeOracle creates an oracle drawing from src. A nil now uses time.Now.
func NewSyntheticVolumeOracle(src rand.Source, now func() time.Time) *SyntheticVolumeOracle {
	if now == nil {
		now = time.Now
	}
	return &SyntheticVolumeOracle{
		rng:     rand.New(src),
		now:     now,
		last:    make(map[types.PoolKey]time.Time),
		running: make(map[types.PoolKey]float64),
	}
}

// RecentVolume implements VolumeOracle.
func (o *SyntheticVolumeOracle) RecentVolume(key types.PoolKey, window time.Duration) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := o.now()
	last, seen := o.last[key]
	if !seen {
		last = current
	}
	elapsed := current.Sub(last)
	if elapsed > window {
		o.running[key] = 0
	}

	sample := syntheticMinSample + o.rng.Float64()*(syntheticMaxSample-syntheticMinSample)
	o.running[key] += sample
	o.last[key] = current

	total := o.running[key]
	// The first call of a window has nothing to extrapolate from.
	if elapsed > 0 && elapsed < window {
		return total * float64(window) / float64(elapsed)
	}
	return total
}

// RecordTrade implements VolumeOracle. Synthetic volume ignores real trades.
func (o *SyntheticVolumeOracle) RecordTrade(types.PoolKey, float64) {}

type trade struct {
	at     time.Time
	amount float64
}

// TradeVolumeOracle sums the inputs of swaps executed within the window.
type TradeVolumeOracle struct {
	mu     sync.Mutex
	now    func() time.Time
	trades map[types.PoolKey][]trade
	// Trades older than retention are discarded on the next call.
	retention time.Duration
}

// NewTradeVolumeOracle creates an oracle keeping trades for retention. A nil now uses time.Now.
func NewTradeVolumeOracle(retention time.Duration, now func() time.Time) *TradeVolumeOracle {
	if now == nil {
		now = time.Now
	}
	return &TradeVolumeOracle{
		now:       now,
		trades:    make(map[types.PoolKey][]trade),
		retention: retention,
	}
}

// RecentVolume implements VolumeOracle.
func (o *TradeVolumeOracle) RecentVolume(key types.PoolKey, window time.Duration) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := o.now()
	o.prune(key, current)

	var total float64
	for _, tr := range o.trades[key] {
		if current.Sub(tr.at) <= window {
			total += tr.amount
		}
	}
	return total
}

// RecordTrade implements VolumeOracle.
func (o *TradeVolumeOracle) RecordTrade(key types.PoolKey, amountIn float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := o.now()
	o.trades[key] = append(o.trades[key], trade{at: current, amount: amountIn})
	o.prune(key, current)
}

func (o *TradeVolumeOracle) prune(key types.PoolKey, current time.Time) {
	if o.retention <= 0 {
		return
	}
	trades := o.trades[key]
	i := 0
	for i < len(trades) && current.Sub(trades[i].at) > o.retention {
		i++
	}
	if i > 0 {
		o.trades[key] = append(trades[:0:0], trades[i:]...)
	}
}
