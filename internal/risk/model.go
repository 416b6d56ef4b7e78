package risk

import (
	"math/rand/v2"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/elys-network/amm/internal/analyzer"
	"github.com/elys-network/amm/internal/types"
)

// ReturnModel draws simulated per-period price returns.
type ReturnModel interface {
	Sample(n int) []float64
}

// NormalModel draws i.i.d. normal returns. It is safe for concurrent use.
type NormalModel struct {
	mu   sync.Mutex
	dist distuv.Normal
}

// NewNormalModel creates a model with the given mean and standard deviation.
// A nil src draws from a randomly seeded PCG.
func NewNormalModel(mean, std float64, src rand.Source) (*NormalModel, error) {
	if !(std > 0) {
		return nil, errorsmod.Wrapf(types.ErrInvalidParameter, "return std must be positive, got %v", std)
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &NormalModel{dist: distuv.Normal{Mu: mean, Sigma: std, Src: src}}, nil
}

// FitNormalModel estimates mean and standard deviation from the simple returns of
// a price series and returns a NormalModel with those moments.
func FitNormalModel(prices []types.PriceData, src rand.Source) (*NormalModel, error) {
	returns, err := analyzer.SimpleReturns(prices)
	if err != nil {
		return nil, err
	}
	if len(returns) < 2 {
		return nil, errorsmod.Wrapf(types.ErrInvalidParameter, "need at least 3 prices to fit a return model, got %d", len(prices))
	}
	mean, std := stat.MeanStdDev(returns, nil)
	return NewNormalModel(mean, std, src)
}

// Mean returns the model mean.
func (m *NormalModel) Mean() float64 { return m.dist.Mu }

// StdDev returns the model standard deviation.
func (m *NormalModel) StdDev() float64 { return m.dist.Sigma }

// Sample implements ReturnModel.
func (m *NormalModel) Sample(n int) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.dist.Rand()
	}
	return out
}

// FixedModel replays a fixed set of returns, cycling when more are requested.
type FixedModel []float64

// Sample implements ReturnModel.
func (m FixedModel) Sample(n int) []float64 {
	out := make([]float64, n)
	if len(m) == 0 {
		return out
	}
	for i := range out {
		out[i] = m[i%len(m)]
	}
	return out
}
