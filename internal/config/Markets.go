/*

This file contains the pools created at startup and the markets used by simulations.

The server starts with a single ETH/USDC pool. Simulations run against three pools over
synthetic tokens whose starting prices are listed in SimulationPrices.

*/

package config

// PoolSeed describes a pool to create with its initial reserves.
type PoolSeed struct {
	TokenA   string
	TokenB   string
	InitialA float64
	InitialB float64
}

var (
	// DefaultPools are created when the server starts.
	DefaultPools = []PoolSeed{
		{TokenA: "ETH", TokenB: "USDC", InitialA: 5000, InitialB: 5000},
	}

	// SimulationPools are created for every simulation run.
	SimulationPools = []PoolSeed{
		{TokenA: "TokenA", TokenB: "TokenB", InitialA: 1000, InitialB: 2000},
		{TokenA: "TokenB", TokenB: "TokenC", InitialA: 100, InitialB: 1000},
		{TokenA: "TokenA", TokenB: "TokenC", InitialA: 500, InitialB: 500},
	}

	// SimulationPrices are the starting token prices of a simulation.
	SimulationPrices = map[string]float64{
		"TokenA": 100,
		"TokenB": 1,
		"TokenC": 10,
	}
)
