// Package probability estimates a signal's success probability from two
// independent estimators: a Bayesian posterior update over the strategy's
// historical win rate, and a Monte Carlo simulation of the strategy's trade
// distribution.
package probability

import (
	"math"

	"github.com/tradercopilot/signal-engine/internal/types"
)

// Likelihood bounds and volatility adjustment factors for the posterior
// update.
const (
	likelihoodFloor   = 0.1
	likelihoodCeil    = 0.9
	volatilityBoost   = 1.2
	volatilityPenalty = 0.8
	neutralLikelihood = 0.5
)

// RegimeProfile is the regime-conditioned historical success profile of a
// strategy, used to derive likelihoods for the posterior update.
type RegimeProfile struct {
	// SuccessRates maps each regime to the historical rate of that regime
	// being observed on winning trades.
	SuccessRates map[types.MarketRegime]float64
	// FailureRates maps each regime to the historical rate of that regime
	// being observed on losing trades.
	FailureRates map[types.MarketRegime]float64
	// OptimalVolatility is the volatility bucket the strategy performs
	// best in.
	OptimalVolatility types.VolatilityLevel
}

// Posterior applies Bayes' rule to update the prior win rate (0-100) with
// the current market conditions. On a degenerate marginal probability or any
// numeric failure it falls back to the prior.
func Posterior(priorWinRate float64, conditions types.MarketConditions, profile RegimeProfile) float64 {
	prior := priorWinRate / 100.0

	likelihoodSuccess := likelihood(conditions, profile, profile.SuccessRates)
	likelihoodFailure := likelihood(conditions, profile, profile.FailureRates)

	marginal := likelihoodSuccess*prior + likelihoodFailure*(1-prior)
	if marginal == 0 {
		return priorWinRate
	}

	posterior := likelihoodSuccess * prior / marginal * 100.0
	if math.IsNaN(posterior) || math.IsInf(posterior, 0) {
		return priorWinRate
	}

	return clamp(posterior, 0, 100)
}

// likelihood computes P(conditions | outcome) from the regime rate table,
// adjusted by whether current volatility matches the strategy's optimal
// bucket, and clamped to a sane probability range.
func likelihood(conditions types.MarketConditions, profile RegimeProfile, rates map[types.MarketRegime]float64) float64 {
	base, ok := rates[conditions.Regime]
	if !ok {
		base = neutralLikelihood
	}

	if conditions.Volatility == profile.OptimalVolatility {
		base *= volatilityBoost
	} else {
		base *= volatilityPenalty
	}

	return clamp(base, likelihoodFloor, likelihoodCeil)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
