package probability

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Simulation defaults. Trials are embarrassingly parallel; the worker count
// bounds the goroutines used per simulation run.
const (
	DefaultSimulations    = 10000
	DefaultWorkers        = 8
	DefaultTrades         = 100
	DefaultInitialCapital = 10000.0
	ruinFraction          = 0.5
)

// SimulationResult summarizes the ending-capital distribution of a Monte
// Carlo run. Probabilities are percentages in [0,100].
type SimulationResult struct {
	// ProfitProbability is the share of sequences ending above starting
	// capital.
	ProfitProbability float64
	// RiskOfRuin is the share of sequences ending at or below half the
	// starting capital.
	RiskOfRuin         float64
	MeanFinalCapital   float64
	MedianFinalCapital float64
	// Percentiles holds the 5th/25th/50th/75th/95th percentiles of the
	// ending-capital distribution.
	Percentiles map[int]float64
}

// Simulator runs independent simulated trade sequences, compounding capital
// multiplicatively per trade outcome.
type Simulator struct {
	simulations int
	workers     int
	seed        int64
}

// SimulatorOption customizes a Simulator.
type SimulatorOption func(*Simulator)

// WithSimulations sets the number of simulated sequences.
func WithSimulations(n int) SimulatorOption {
	return func(s *Simulator) {
		if n > 0 {
			s.simulations = n
		}
	}
}

// WithWorkers bounds the number of parallel workers.
func WithWorkers(n int) SimulatorOption {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSeed makes runs reproducible. A zero seed draws outcomes from a
// time-seeded source.
func WithSeed(seed int64) SimulatorOption {
	return func(s *Simulator) {
		s.seed = seed
	}
}

// NewSimulator creates a Simulator with the given options.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		simulations: DefaultSimulations,
		workers:     DefaultWorkers,
		seed:        0,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Simulate runs the configured number of independent trade sequences.
// winRate is a percentage (0-100); avgWin and avgLoss are per-trade returns
// in percent (avgLoss negative). Invalid inputs yield the documented neutral
// fallback: 50% profit probability and 100% risk of ruin.
func (s *Simulator) Simulate(winRate, avgWin, avgLoss float64, trades int, initialCapital float64) SimulationResult {
	if !validInputs(winRate, avgWin, avgLoss, trades, initialCapital) {
		return fallbackResult(initialCapital)
	}

	pWin := winRate / 100.0
	finals := make([]float64, s.simulations)

	chunk := (s.simulations + s.workers - 1) / s.workers

	var wg sync.WaitGroup

	for w := 0; w < s.workers; w++ {
		start := w * chunk
		if start >= s.simulations {
			break
		}

		end := start + chunk
		if end > s.simulations {
			end = s.simulations
		}

		wg.Add(1)

		go func(worker, start, end int) {
			defer wg.Done()

			rng := s.newRand(worker)
			for i := start; i < end; i++ {
				finals[i] = simulateSequence(rng, pWin, avgWin, avgLoss, trades, initialCapital)
			}
		}(w, start, end)
	}

	wg.Wait()

	return summarize(finals, initialCapital)
}

func (s *Simulator) newRand(worker int) *rand.Rand {
	seed := s.seed
	if seed == 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}

	return rand.New(rand.NewSource(seed + int64(worker)))
}

// simulateSequence compounds one sequence of trades, truncating at zero
// capital.
func simulateSequence(rng *rand.Rand, pWin, avgWin, avgLoss float64, trades int, capital float64) float64 {
	for i := 0; i < trades; i++ {
		if rng.Float64() < pWin {
			capital += capital * (avgWin / 100.0)
		} else {
			capital += capital * (avgLoss / 100.0)
		}

		if capital <= 0 {
			return 0
		}
	}

	return capital
}

func summarize(finals []float64, initialCapital float64) SimulationResult {
	n := float64(len(finals))

	profitable, ruined, sum := 0, 0, 0.0
	for _, c := range finals {
		sum += c

		if c > initialCapital {
			profitable++
		}

		if c <= initialCapital*ruinFraction {
			ruined++
		}
	}

	sorted := make([]float64, len(finals))
	copy(sorted, finals)
	sort.Float64s(sorted)

	percentiles := map[int]float64{
		5:  round2(percentile(sorted, 5)),
		25: round2(percentile(sorted, 25)),
		50: round2(percentile(sorted, 50)),
		75: round2(percentile(sorted, 75)),
		95: round2(percentile(sorted, 95)),
	}

	return SimulationResult{
		ProfitProbability:  round2(float64(profitable) / n * 100),
		RiskOfRuin:         round2(float64(ruined) / n * 100),
		MeanFinalCapital:   round2(sum / n),
		MedianFinalCapital: percentiles[50],
		Percentiles:        percentiles,
	}
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}

	rank := float64(p) / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func validInputs(winRate, avgWin, avgLoss float64, trades int, initialCapital float64) bool {
	if winRate < 0 || winRate > 100 || trades <= 0 || initialCapital <= 0 {
		return false
	}

	if math.IsNaN(winRate) || math.IsNaN(avgWin) || math.IsNaN(avgLoss) {
		return false
	}

	// a "winning" trade must not lose money and vice versa
	return avgWin >= 0 && avgLoss <= 0
}

// fallbackResult is the neutral response for invalid inputs: no edge either
// way on profit, full risk of ruin so downstream treats the metrics as
// untrustworthy.
func fallbackResult(initialCapital float64) SimulationResult {
	return SimulationResult{
		ProfitProbability:  50.0,
		RiskOfRuin:         100.0,
		MeanFinalCapital:   initialCapital,
		MedianFinalCapital: initialCapital,
		Percentiles:        nil,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
