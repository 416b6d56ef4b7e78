// Package amm implements the registry of constant-product pools keyed by token pair,
// with dynamic fees and rebalancing incentives layered on top.
package amm

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog"

	"github.com/elys-network/amm/internal/logger"
	"github.com/elys-network/amm/internal/pool"
	"github.com/elys-network/amm/internal/types"
)

// poolEntry pairs a pool with the lock that serializes every operation on it,
// including the volume estimate that feeds fee adjustment.
type poolEntry struct {
	mu   sync.Mutex
	key  types.PoolKey
	pool *pool.LiquidityPool
}

// state returns the canonical snapshot. The caller holds e.mu.
func (e *poolEntry) state() types.PoolSnapshot {
	snap := e.pool.State()
	snap.TokenA = e.key.TokenA
	snap.TokenB = e.key.TokenB
	return snap
}

// AMM is the registry of pools. It is safe for concurrent use: the pool map is
// guarded by a read-write lock and every pool by its own mutex.
type AMM struct {
	logger    zerolog.Logger
	params    types.AMMParameters
	volume    VolumeOracle
	observers []Observer
	now       func() time.Time

	mu    sync.RWMutex
	pools map[types.PoolKey]*poolEntry
}

// Config holds the configuration for creating a new AMM instance
type Config struct {
	Params       types.AMMParameters
	VolumeOracle VolumeOracle     // Defaults to a SyntheticVolumeOracle
	Observers    []Observer       // Notified of every pool mutation
	Now          func() time.Time // Defaults to time.Now
}

// NewAMM creates an empty registry.
func NewAMM(cfg Config) (*AMM, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidParameter, err.Error())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	volume := cfg.VolumeOracle
	if volume == nil {
		volume = NewSyntheticVolumeOracle(rand.NewPCG(rand.Uint64(), rand.Uint64()), now)
	}

	a := &AMM{
		logger:    logger.GetForComponent("amm"),
		params:    cfg.Params,
		volume:    volume,
		observers: cfg.Observers,
		now:       now,
		pools:     make(map[types.PoolKey]*poolEntry),
	}

	a.logger.Info().
		Float64("defaultFee", cfg.Params.DefaultFee).
		Float64("maxFee", cfg.Params.MaxFee).
		Str("volumeOracle", fmt.Sprintf("%T", volume)).
		Msg("AMM instance created")

	return a, nil
}

// Params returns the registry parameters.
func (a *AMM) Params() types.AMMParameters {
	return a.params
}

func validatePair(tokenA, tokenB string) error {
	if tokenA == "" || tokenB == "" {
		return errorsmod.Wrap(types.ErrInvalidParameter, "token symbols must not be empty")
	}
	if strings.Contains(tokenA, "-") || strings.Contains(tokenB, "-") {
		return errorsmod.Wrapf(types.ErrInvalidParameter, "token symbols must not contain '-', got %s and %s", tokenA, tokenB)
	}
	if tokenA == tokenB {
		return errorsmod.Wrapf(types.ErrInvalidParameter, "pool needs two distinct tokens, got %s twice", tokenA)
	}
	return nil
}

// orient maps amounts given in caller order onto the canonical sides of key.
// The mapping is its own inverse.
func orient(key types.PoolKey, tokenA string, amountA, amountB float64) (float64, float64) {
	if key.TokenA == tokenA {
		return amountA, amountB
	}
	return amountB, amountA
}

func (a *AMM) lookup(tokenA, tokenB string) (*poolEntry, error) {
	if err := validatePair(tokenA, tokenB); err != nil {
		return nil, err
	}
	key := types.NewPoolKey(tokenA, tokenB)

	a.mu.RLock()
	entry, ok := a.pools[key]
	a.mu.RUnlock()
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrPoolNotFound, "pool %s", key)
	}
	return entry, nil
}

func (a *AMM) emit(ev Event) {
	ev.Time = a.now()
	for _, obs := range a.observers {
		obs.Observe(ev)
	}
}

// CreatePool registers a new pool seeded with initialA of tokenA and initialB of tokenB.
func (a *AMM) CreatePool(tokenA, tokenB string, initialA, initialB float64) error {
	if err := validatePair(tokenA, tokenB); err != nil {
		return err
	}
	key := types.NewPoolKey(tokenA, tokenB)
	reserveA, reserveB := orient(key, tokenA, initialA, initialB)

	p, err := pool.New(reserveA, reserveB, a.params.DefaultFee)
	if err != nil {
		return err
	}
	entry := &poolEntry{key: key, pool: p}

	a.mu.Lock()
	if _, exists := a.pools[key]; exists {
		a.mu.Unlock()
		return errorsmod.Wrapf(types.ErrPoolExists, "pool %s", key)
	}
	a.pools[key] = entry
	// Lock the entry before publishing the map so the creation event precedes any other.
	entry.mu.Lock()
	a.mu.Unlock()
	defer entry.mu.Unlock()

	state := entry.state()
	a.emit(Event{
		Type:     types.TxCreatePool,
		Pool:     key,
		TokenA:   tokenA,
		TokenB:   tokenB,
		AmountA:  initialA,
		AmountB:  initialB,
		LPTokens: state.TotalLPTokens,
		Fee:      state.Fee,
		State:    state,
	})

	a.logger.Info().
		Str("pool", key.String()).
		Float64("reserveA", reserveA).
		Float64("reserveB", reserveB).
		Msg("Pool created")
	return nil
}

// GetPool returns a snapshot of the pool with tokenA on the A side.
func (a *AMM) GetPool(tokenA, tokenB string) (types.PoolSnapshot, error) {
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return types.PoolSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state().Oriented(tokenA), nil
}

// AddLiquidity deposits amountA of tokenA and amountB of tokenB and returns the LP tokens minted.
func (a *AMM) AddLiquidity(tokenA, tokenB string, amountA, amountB float64) (float64, error) {
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	return a.addLiquidityLocked(entry, tokenA, tokenB, amountA, amountB, 0)
}

func (a *AMM) addLiquidityLocked(entry *poolEntry, tokenA, tokenB string, amountA, amountB, bonus float64) (float64, error) {
	depositA, depositB := orient(entry.key, tokenA, amountA, amountB)
	minted, err := entry.pool.AddLiquidityWithBonus(depositA, depositB, bonus, a.params.DepositTolerance)
	if err != nil {
		return 0, err
	}

	state := entry.state()
	a.emit(Event{
		Type:     types.TxAddLiquidity,
		Pool:     entry.key,
		TokenA:   tokenA,
		TokenB:   tokenB,
		AmountA:  amountA,
		AmountB:  amountB,
		LPTokens: minted,
		Fee:      state.Fee,
		State:    state,
	})
	return minted, nil
}

// RemoveLiquidity burns lpTokens and returns the withdrawn amounts of tokenA and tokenB.
func (a *AMM) RemoveLiquidity(tokenA, tokenB string, lpTokens float64) (amountA, amountB float64, err error) {
	entry, err := a.lookup(tokenA, tokenB)
	if err != nil {
		return 0, 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	outA, outB, err := entry.pool.RemoveLiquidity(lpTokens)
	if err != nil {
		return 0, 0, err
	}
	amountA, amountB = orient(entry.key, tokenA, outA, outB)

	state := entry.state()
	a.emit(Event{
		Type:     types.TxRemoveLiquidity,
		Pool:     entry.key,
		TokenA:   tokenA,
		TokenB:   tokenB,
		AmountA:  amountA,
		AmountB:  amountB,
		LPTokens: lpTokens,
		Fee:      state.Fee,
		State:    state,
	})
	return amountA, amountB, nil
}

// Swap sells amount of tokenFrom for tokenTo and returns the output amount.
func (a *AMM) Swap(tokenFrom, tokenTo string, amount float64) (float64, error) {
	entry, err := a.lookup(tokenFrom, tokenTo)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	var out float64
	if tokenFrom == entry.key.TokenA {
		out, err = entry.pool.SwapAToB(amount)
	} else {
		out, err = entry.pool.SwapBToA(amount)
	}
	if err != nil {
		return 0, err
	}
	a.volume.RecordTrade(entry.key, amount)

	state := entry.state()
	a.emit(Event{
		Type:    types.TxSwap,
		Pool:    entry.key,
		TokenA:  tokenFrom,
		TokenB:  tokenTo,
		AmountA: amount,
		AmountB: out,
		Fee:     state.Fee,
		State:   state,
	})

	a.logger.Debug().
		Str("pool", entry.key.String()).
		Str("tokenIn", tokenFrom).
		Float64("amountIn", amount).
		Float64("amountOut", out).
		Msg("Swap executed")
	return out, nil
}

// QuoteSwap returns the output Swap would produce without executing it.
func (a *AMM) QuoteSwap(tokenFrom, tokenTo string, amount float64) (float64, error) {
	entry, err := a.lookup(tokenFrom, tokenTo)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if tokenFrom == entry.key.TokenA {
		return entry.pool.QuoteAToB(amount)
	}
	return entry.pool.QuoteBToA(amount)
}

// GetExchangeRate returns the spot price of tokenA in units of tokenB.
func (a *AMM) GetExchangeRate(tokenA, tokenB string) (float64, error) {
	snap, err := a.GetPool(tokenA, tokenB)
	if err != nil {
		return 0, err
	}
	return snap.ExchangeRate(), nil
}

// CalculateImpermanentLoss returns the impermanent loss of the pair for a price ratio change.
func (a *AMM) CalculateImpermanentLoss(tokenA, tokenB string, priceRatioChange float64) (float64, error) {
	if _, err := a.lookup(tokenA, tokenB); err != nil {
		return 0, err
	}
	return pool.ImpermanentLoss(priceRatioChange)
}

// PoolCount returns the number of registered pools.
func (a *AMM) PoolCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pools)
}

// Pools returns canonical snapshots of all pools, ordered by key, taken at a
// single consistent point.
func (a *AMM) Pools() []types.PoolSnapshot {
	return a.snapshotAll()
}

// snapshotAll locks every pool in key order, copies the state, and releases the locks.
func (a *AMM) snapshotAll() []types.PoolSnapshot {
	a.mu.RLock()
	entries := make([]*poolEntry, 0, len(a.pools))
	for _, e := range a.pools {
		entries = append(entries, e)
	}
	a.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key.String() < entries[j].key.String()
	})

	for _, e := range entries {
		e.mu.Lock()
	}
	snaps := make([]types.PoolSnapshot, len(entries))
	for i, e := range entries {
		snaps[i] = e.state()
	}
	for _, e := range entries {
		e.mu.Unlock()
	}
	return snaps
}

// GetTotalValueLocked returns the reserves locked in every pool, summed per token
// symbol. A token that is side A of one pool and side B of another is summed
// under one key.
func (a *AMM) GetTotalValueLocked() map[string]float64 {
	tvl := make(map[string]float64)
	for _, s := range a.snapshotAll() {
		tvl[s.TokenA] += s.ReserveA
		tvl[s.TokenB] += s.ReserveB
	}
	return tvl
}

// CalculateFeesEarned returns the fees collected by every pool, summed per token symbol.
func (a *AMM) CalculateFeesEarned() map[string]float64 {
	fees := make(map[string]float64)
	for _, s := range a.snapshotAll() {
		fees[s.TokenA] += s.TotalFeesA
		fees[s.TokenB] += s.TotalFeesB
	}
	return fees
}
