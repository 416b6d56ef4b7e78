/*

Types produced by market simulations and persisted by the report store.

*/

package types

import (
	"time"

	"github.com/google/uuid"
)

// SimulationEvent names the kind of event applied during a simulation step.
type SimulationEvent string

const (
	EventTrade     SimulationEvent = "trade"
	EventLiquidity SimulationEvent = "liquidity"
)

// StepRecord captures a single simulation step.
type StepRecord struct {
	Step      int                `json:"step"`
	Event     SimulationEvent    `json:"event"`
	TokenA    string             `json:"token_a"`
	TokenB    string             `json:"token_b"`
	Amount    float64            `json:"amount"`              // Trade input or first deposit/LP amount
	AmountOut float64            `json:"amount_out"`          // Swap output or first withdrawn amount
	IsAdd     bool               `json:"is_add,omitempty"`    // Liquidity events only
	Error     string             `json:"error,omitempty"`     // Set when the AMM rejected the event
	Prices    map[string]float64 `json:"prices"`              // Token prices after this step's random walk
	VaR       *float64           `json:"var,omitempty"`       // Value at risk of the traded pair, when it could be computed
	VaRError  string             `json:"var_error,omitempty"`
}

// PoolMetrics is the profitability of a single pool at a point in time.
type PoolMetrics struct {
	Pool            string  `json:"pool"`
	LPReturn        float64 `json:"lp_return"`        // (reserves + fees) / LP supply - 1
	ImpermanentLoss float64 `json:"impermanent_loss"` // At the pool's current exchange rate
	TotalFees       float64 `json:"total_fees"`
}

// MetricsSample is the set of pool metrics recorded at a simulation step.
type MetricsSample struct {
	Step        int                    `json:"step"`
	TotalVolume float64                `json:"total_volume"`
	TotalFees   float64                `json:"total_fees"`
	FeesByToken map[string]float64     `json:"fees_by_token"` // Fees summed per token symbol across pools
	Pools       map[string]PoolMetrics `json:"pools"`
}

// SimulationReport summarizes a complete simulation run.
type SimulationReport struct {
	RunID        uuid.UUID          `json:"run_id"`
	Scenario     string             `json:"scenario"`
	Volatility   float64            `json:"volatility"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Steps        []StepRecord       `json:"steps"`
	Metrics      []MetricsSample    `json:"metrics"`
	FinalMetrics MetricsSample      `json:"final_metrics"`
	Realized     map[string]float64 `json:"realized_volatility"` // Per-token realized volatility of the simulated price path
}
