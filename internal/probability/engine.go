package probability

import (
	"math"

	"github.com/tradercopilot/signal-engine/internal/types"
)

// Estimator weights for the combined probability.
const (
	posteriorWeight  = 0.6
	simulationWeight = 0.4
)

// Engine combines the Bayesian posterior and the Monte Carlo simulation
// into a single probability score.
type Engine struct {
	simulator *Simulator
}

// NewEngine creates a probability engine backed by the given simulator.
func NewEngine(simulator *Simulator) *Engine {
	return &Engine{simulator: simulator}
}

// Combine produces the final probability (0-100, two decimal places) for a
// candidate given the strategy's backtest summary, its regime profile, and
// the current market conditions.
func (e *Engine) Combine(summary types.BacktestSummary, profile RegimeProfile, conditions types.MarketConditions) (float64, SimulationResult) {
	posterior := Posterior(summary.WinRate, conditions, profile)

	sim := e.simulator.Simulate(
		summary.WinRate,
		summary.AvgWin,
		summary.AvgLoss,
		DefaultTrades,
		DefaultInitialCapital,
	)

	combined := posterior*posteriorWeight + sim.ProfitProbability*simulationWeight

	return math.Round(combined*100) / 100, sim
}
