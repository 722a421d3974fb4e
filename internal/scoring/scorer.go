// Package scoring combines probability, historical performance, regime
// match, risk/reward and volatility match into a single 0-10 quality score.
package scoring

import (
	"math"

	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

// Factor names the five scoring factors.
type Factor string

const (
	FactorProbability Factor = "probability_score"
	FactorPerformance Factor = "backtest_performance"
	FactorRegime      Factor = "market_regime_match"
	FactorRiskReward  Factor = "risk_reward_ratio"
	FactorVolatility  Factor = "volatility_match"
)

// weightSumTolerance is how far the weight sum may drift from 1.0 before
// construction fails.
const weightSumTolerance = 0.01

// neutralScore is returned whenever an internal numeric failure would
// otherwise crash scoring.
const neutralScore = 5.0

// sharpeCap caps the Sharpe ratio contribution; 3.0+ is treated as excellent.
const sharpeCap = 3.0

// DefaultWeights are the standard factor weights.
func DefaultWeights() map[Factor]float64 {
	return map[Factor]float64{
		FactorProbability: 0.35,
		FactorPerformance: 0.25,
		FactorRegime:      0.20,
		FactorRiskReward:  0.15,
		FactorVolatility:  0.05,
	}
}

// Scorer computes the multi-factor signal quality score.
type Scorer struct {
	weights map[Factor]float64
}

// Input bundles everything one scoring run needs.
type Input struct {
	// Probability is the combined probability score (0-100).
	Probability float64
	// Summary is the strategy's backtest summary.
	Summary types.BacktestSummary
	// Regime is the current market regime.
	Regime types.MarketRegime
	// RegimeWinRates maps regimes to the strategy's historical win rate
	// (0-100) in that regime; missing regimes default to 50.
	RegimeWinRates map[types.MarketRegime]float64
	// RiskReward is the candidate's reward/risk ratio.
	RiskReward float64
	// CurrentVolatility and OptimalVolatility are ordinal buckets.
	CurrentVolatility types.VolatilityLevel
	OptimalVolatility types.VolatilityLevel
}

// NewScorer creates a scorer, rejecting weight maps that do not sum to 1.0
// within tolerance. Weights are never silently renormalized.
func NewScorer(weights map[Factor]float64) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}

	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, errors.Newf(errors.ErrCodeInvalidWeights,
			"scoring weights must sum to 1.0, got %.4f", sum)
	}

	return &Scorer{weights: weights}, nil
}

// Score computes the weighted quality score, clamped to [0,10] and rounded
// to one decimal. Numeric failures inside any factor resolve to the neutral
// score rather than an error; scoring must never crash the pipeline.
func (s *Scorer) Score(in Input) float64 {
	score := probabilityFactor(in.Probability)*s.weights[FactorProbability] +
		performanceFactor(in.Summary)*s.weights[FactorPerformance] +
		regimeFactor(in.Regime, in.RegimeWinRates)*s.weights[FactorRegime] +
		RiskRewardFactor(in.RiskReward)*s.weights[FactorRiskReward] +
		volatilityFactor(in.CurrentVolatility, in.OptimalVolatility)*s.weights[FactorVolatility]

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return neutralScore
	}

	return math.Round(clamp(score, 0, 10)*10) / 10
}

func probabilityFactor(probability float64) float64 {
	f := probability / 100.0 * 10.0
	if math.IsNaN(f) {
		return neutralScore
	}

	return clamp(f, 0, 10)
}

// performanceFactor averages the win-rate component and the capped Sharpe
// component, each normalized to 0-10.
func performanceFactor(summary types.BacktestSummary) float64 {
	winComponent := summary.WinRate / 100.0 * 10.0
	sharpeComponent := math.Min(summary.SharpeRatio/sharpeCap, 1.0) * 10.0

	f := (winComponent + sharpeComponent) / 2.0
	if math.IsNaN(f) {
		return neutralScore
	}

	return clamp(f, 0, 10)
}

func regimeFactor(regime types.MarketRegime, winRates map[types.MarketRegime]float64) float64 {
	rate, ok := winRates[regime]
	if !ok {
		rate = 50.0
	}

	f := rate / 100.0 * 10.0
	if math.IsNaN(f) {
		return neutralScore
	}

	return clamp(f, 0, 10)
}

// RiskRewardFactor maps a reward/risk ratio onto 0-10 as a monotonic
// piecewise function. The sweet spot is 2-4:
//
//	1:1 -> 3.0, 2:1 -> 7.0, 3:1 and above -> 10.0
func RiskRewardFactor(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio):
		return neutralScore
	case ratio >= 3.0:
		return 10.0
	case ratio >= 2.0:
		return 7.0 + (ratio-2.0)*3.0
	case ratio >= 1.0:
		return 3.0 + (ratio-1.0)*4.0
	default:
		return math.Max(0.0, ratio*3.0)
	}
}

func volatilityFactor(current, optimal types.VolatilityLevel) float64 {
	difference := current.Rank() - optimal.Rank()
	if difference < 0 {
		difference = -difference
	}

	switch difference {
	case 0:
		return 10.0
	case 1:
		return 7.0
	case 2:
		return 5.0
	default:
		return 3.0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
