// Package simulations drives an AMM with random price moves, trades and liquidity
// events and records the resulting profitability and risk figures.
package simulations

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/amm/internal/analyzer"
	"github.com/elys-network/amm/internal/logger"
	"github.com/elys-network/amm/internal/risk"
	"github.com/elys-network/amm/internal/types"
)

const (
	minTradeAmount = 1
	maxTradeAmount = 1000

	defaultVaRSimulations = 1000
	defaultStepInterval   = time.Hour
)

var simLogger = logger.GetForComponent("market_simulator")

// Market is the subset of the AMM a simulation drives.
type Market interface {
	Swap(tokenFrom, tokenTo string, amount float64) (float64, error)
	AddLiquidity(tokenA, tokenB string, amountA, amountB float64) (float64, error)
	RemoveLiquidity(tokenA, tokenB string, lpTokens float64) (float64, float64, error)
	Pools() []types.PoolSnapshot
}

// RiskEstimator supplies the per-step value at risk.
type RiskEstimator interface {
	CalculateVaR(tokenA, tokenB string, opts risk.VaROptions) (float64, error)
}

// Config holds the configuration for creating a new MarketSimulation
type Config struct {
	Market         Market
	Risk           RiskEstimator
	InitialPrices  map[string]float64 // Copied; the caller's map is never modified
	Seed           uint64             // 0 picks a random seed
	Scenario       string             // Label carried into the report
	VaRSimulations int                // Monte Carlo draws per step; defaults to 1000
	StepInterval   time.Duration      // Simulated time between steps; defaults to one hour
	Now            func() time.Time   // Defaults to time.Now
}

// MarketSimulation applies a random walk to token prices and a random trade or
// liquidity event to the market at every step.
type MarketSimulation struct {
	logger zerolog.Logger
	cfg    Config
	rng    *rand.Rand

	tokens       []string
	prices       map[string]float64
	priceHistory map[string][]types.PriceData
	start        time.Time
	steps        int
	totalVolume  float64

	history []types.StepRecord
	metrics *ProfitabilityMetrics
}

// NewMarketSimulation validates cfg and prepares a simulation.
func NewMarketSimulation(cfg Config) (*MarketSimulation, error) {
	if cfg.Market == nil {
		return nil, fmt.Errorf("market cannot be nil")
	}
	if cfg.Risk == nil {
		return nil, fmt.Errorf("risk estimator cannot be nil")
	}
	if len(cfg.InitialPrices) < 2 {
		return nil, fmt.Errorf("need at least two token prices, got %d", len(cfg.InitialPrices))
	}
	if cfg.VaRSimulations <= 0 {
		cfg.VaRSimulations = defaultVaRSimulations
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = defaultStepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	sim := &MarketSimulation{
		logger:       simLogger.With().Str("scenario", cfg.Scenario).Logger(),
		cfg:          cfg,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		prices:       make(map[string]float64, len(cfg.InitialPrices)),
		priceHistory: make(map[string][]types.PriceData, len(cfg.InitialPrices)),
		start:        cfg.Now(),
		metrics:      NewProfitabilityMetrics(cfg.Market),
	}
	for token, price := range cfg.InitialPrices {
		if !(price > 0) {
			return nil, fmt.Errorf("initial price of %s must be positive, got %v", token, price)
		}
		sim.tokens = append(sim.tokens, token)
		sim.prices[token] = price
		sim.priceHistory[token] = []types.PriceData{{Timestamp: sim.start, Price: price}}
	}
	// Iterate tokens in a fixed order so a seed reproduces a run.
	sort.Strings(sim.tokens)
	return sim, nil
}

// Prices returns a copy of the current token prices.
func (s *MarketSimulation) Prices() map[string]float64 {
	out := make(map[string]float64, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}

// SimulatePriceChange multiplies the token price by 1 + N(0, volatility).
func (s *MarketSimulation) SimulatePriceChange(token string, volatility float64) {
	change := s.rng.NormFloat64() * volatility
	s.prices[token] *= 1 + change
}

// SimulateTrade swaps amount of tokenIn for tokenOut.
func (s *MarketSimulation) SimulateTrade(tokenIn, tokenOut string, amount float64) (float64, error) {
	out, err := s.cfg.Market.Swap(tokenIn, tokenOut, amount)
	if err != nil {
		return 0, err
	}
	s.totalVolume += amount
	return out, nil
}

// SimulateLiquidityEvent adds (amountA, amountB) or, when isAdd is false, burns
// amountA LP tokens. It returns the LP tokens minted, or the withdrawn amounts.
func (s *MarketSimulation) SimulateLiquidityEvent(tokenA, tokenB string, amountA, amountB float64, isAdd bool) (float64, float64, error) {
	if isAdd {
		minted, err := s.cfg.Market.AddLiquidity(tokenA, tokenB, amountA, amountB)
		return minted, 0, err
	}
	return s.cfg.Market.RemoveLiquidity(tokenA, tokenB, amountA)
}

// RunSimulation runs numSteps steps at the given price volatility.
func (s *MarketSimulation) RunSimulation(numSteps int, volatility float64) error {
	if numSteps < 0 {
		return fmt.Errorf("number of steps must be non-negative, got %d", numSteps)
	}
	if !(volatility >= 0) {
		return fmt.Errorf("volatility must be non-negative, got %v", volatility)
	}

	s.logger.Info().
		Int("steps", numSteps).
		Float64("volatility", volatility).
		Msg("Starting market simulation")

	for i := 0; i < numSteps; i++ {
		s.steps++
		s.step(s.steps, volatility)
	}
	return nil
}

func (s *MarketSimulation) step(step int, volatility float64) {
	at := s.start.Add(time.Duration(step) * s.cfg.StepInterval)
	for _, token := range s.tokens {
		s.SimulatePriceChange(token, volatility)
		s.priceHistory[token] = append(s.priceHistory[token], types.PriceData{Timestamp: at, Price: s.prices[token]})
	}

	tokenA, tokenB := s.samplePair()
	record := types.StepRecord{Step: step, TokenA: tokenA, TokenB: tokenB}

	var err error
	if s.rng.IntN(2) == 0 {
		record.Event = types.EventTrade
		record.Amount = s.uniform(minTradeAmount, maxTradeAmount)
		record.AmountOut, err = s.SimulateTrade(tokenA, tokenB, record.Amount)
	} else {
		record.Event = types.EventLiquidity
		amountA := s.uniform(minTradeAmount, maxTradeAmount)
		amountB := s.uniform(minTradeAmount, maxTradeAmount)
		record.IsAdd = s.rng.IntN(2) == 0
		record.Amount = amountA
		var out float64
		out, _, err = s.SimulateLiquidityEvent(tokenA, tokenB, amountA, amountB, record.IsAdd)
		record.AmountOut = out
	}
	if err != nil {
		record.Error = err.Error()
	}

	s.metrics.Update(step, s.totalVolume)

	valueAtRisk, err := s.cfg.Risk.CalculateVaR(tokenA, tokenB, risk.VaROptions{NumSimulations: s.cfg.VaRSimulations})
	if err != nil {
		record.VaRError = err.Error()
	} else {
		record.VaR = &valueAtRisk
	}

	record.Prices = s.Prices()
	s.history = append(s.history, record)

	s.logger.Debug().
		Int("step", step).
		Str("event", string(record.Event)).
		Str("pair", tokenA+"/"+tokenB).
		Str("error", record.Error).
		Msg("Simulation step")
}

// InjectTrade executes a trade outside the random schedule and records it as its own step.
func (s *MarketSimulation) InjectTrade(tokenIn, tokenOut string, amount float64) types.StepRecord {
	s.steps++
	record := types.StepRecord{
		Step:   s.steps,
		Event:  types.EventTrade,
		TokenA: tokenIn,
		TokenB: tokenOut,
		Amount: amount,
	}
	out, err := s.SimulateTrade(tokenIn, tokenOut, amount)
	if err != nil {
		record.Error = err.Error()
	}
	record.AmountOut = out
	s.metrics.Update(s.steps, s.totalVolume)
	record.Prices = s.Prices()
	s.history = append(s.history, record)
	return record
}

// History returns the recorded steps.
func (s *MarketSimulation) History() []types.StepRecord {
	return s.history
}

// GenerateReport summarizes the run so far.
func (s *MarketSimulation) GenerateReport(volatility float64) types.SimulationReport {
	realized := make(map[string]float64, len(s.tokens))
	for _, token := range s.tokens {
		vol, err := analyzer.CalculateVolatility(s.priceHistory[token], 1)
		if err != nil {
			continue
		}
		realized[token] = vol
	}

	samples := s.metrics.Samples()
	return types.SimulationReport{
		RunID:        uuid.New(),
		Scenario:     s.cfg.Scenario,
		Volatility:   volatility,
		StartedAt:    s.start,
		FinishedAt:   s.cfg.Now(),
		Steps:        append([]types.StepRecord(nil), s.history...),
		Metrics:      append([]types.MetricsSample(nil), samples...),
		FinalMetrics: s.metrics.Latest(),
		Realized:     realized,
	}
}

func (s *MarketSimulation) samplePair() (string, string) {
	n := len(s.tokens)
	i := s.rng.IntN(n)
	j := s.rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return s.tokens[i], s.tokens[j]
}

func (s *MarketSimulation) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
