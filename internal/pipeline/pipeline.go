// Package pipeline orchestrates one signal candidate through the gate,
// probability, scoring, threshold and enrichment stages, terminating at
// either a rejected or an accepted outcome.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/tradercopilot/signal-engine/internal/gate"
	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/probability"
	"github.com/tradercopilot/signal-engine/internal/scoring"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
	"go.uber.org/zap"
)

// Status is the terminal outcome of a pipeline run.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Rejection reasons reported in Result.Reason.
const (
	ReasonStrategyMissing  = "strategy_not_found"
	ReasonBacktestMissing  = "backtest_not_found"
	ReasonGateFailed       = "backtest_gate_failed"
	ReasonScoreBelowMin    = "quality_score_below_minimum"
	ReasonProbabilityBelow = "probability_below_minimum"
)

// Result is the outcome of one pipeline run. Signal is populated only when
// Status is StatusAccepted.
type Result struct {
	Status Status
	Reason string
	Signal types.Signal
	// Probability and Score are reported for both outcomes so callers can
	// log near-misses.
	Probability float64
	Score       float64
}

// Config holds the pipeline thresholds and timings.
type Config struct {
	// MinQualityScore and MinProbability are independent gates; either
	// can veto a candidate.
	MinQualityScore float64 `yaml:"min_quality_score" json:"min_quality_score" validate:"gte=0,lte=10"`
	MinProbability  float64 `yaml:"min_probability" json:"min_probability" validate:"gte=0,lte=100"`
	// ExpiryHorizon is how long an emitted signal stays valid.
	ExpiryHorizon time.Duration `yaml:"expiry_horizon" json:"expiry_horizon" validate:"gt=0"`
	// EnrichmentTimeout bounds the external enrichment call.
	EnrichmentTimeout time.Duration `yaml:"enrichment_timeout" json:"enrichment_timeout" validate:"gt=0"`
}

// DefaultConfig returns the standard pipeline thresholds.
func DefaultConfig() Config {
	return Config{
		MinQualityScore:   7.0,
		MinProbability:    60.0,
		ExpiryHorizon:     24 * time.Hour,
		EnrichmentTimeout: 10 * time.Second,
	}
}

// Pipeline runs candidates through the full decision sequence. All
// collaborators are injected; the pipeline holds no ambient global state.
type Pipeline struct {
	config      Config
	strategies  StrategyStore
	backtests   BacktestSource
	gate        *gate.Gate
	engine      *probability.Engine
	scorer      *scoring.Scorer
	enricher    Enricher
	signalStore SignalStore
	distributor Distributor
	log         *logger.Logger
	now         func() time.Time
}

// NewPipeline wires a pipeline from its collaborators. The enricher,
// signal store and distributor may be nil; the corresponding stage is then
// skipped (enrichment falls back to the conservative default).
func NewPipeline(
	config Config,
	strategies StrategyStore,
	backtests BacktestSource,
	g *gate.Gate,
	engine *probability.Engine,
	scorer *scoring.Scorer,
	enricher Enricher,
	signalStore SignalStore,
	distributor Distributor,
	log *logger.Logger,
) (*Pipeline, error) {
	if strategies == nil || backtests == nil || g == nil || engine == nil || scorer == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"pipeline requires strategy store, backtest source, gate, probability engine and scorer")
	}

	if config.ExpiryHorizon <= 0 {
		config.ExpiryHorizon = DefaultConfig().ExpiryHorizon
	}

	if config.EnrichmentTimeout <= 0 {
		config.EnrichmentTimeout = DefaultConfig().EnrichmentTimeout
	}

	return &Pipeline{
		config:      config,
		strategies:  strategies,
		backtests:   backtests,
		gate:        g,
		engine:      engine,
		scorer:      scorer,
		enricher:    enricher,
		signalStore: signalStore,
		distributor: distributor,
		log:         log,
		now:         time.Now,
	}, nil
}

// Run takes one candidate through the pipeline. It never returns an error:
// every failure mode resolves to a rejected result, logged locally.
func (p *Pipeline) Run(ctx context.Context, candidate types.SignalCandidate, conditions types.MarketConditions) Result {
	strategy, err := p.strategies.GetStrategy(ctx, candidate.StrategyID)
	if err != nil {
		p.log.Warn("strategy lookup failed",
			zap.String("strategy_id", candidate.StrategyID), zap.Error(err))

		return rejected(ReasonStrategyMissing, 0, 0)
	}

	summary, err := p.backtests.LatestSummary(ctx, candidate.StrategyID)
	if err != nil {
		p.log.Warn("no backtest summary for strategy",
			zap.String("strategy_id", candidate.StrategyID), zap.Error(err))

		return rejected(ReasonBacktestMissing, 0, 0)
	}

	if !p.gate.Passes(summary) {
		p.log.Info("candidate rejected by backtest gate",
			zap.String("strategy", strategy.Name),
			zap.Int("total_trades", summary.TotalTrades),
			zap.Float64("win_rate", summary.WinRate))

		return rejected(ReasonGateFailed, 0, 0)
	}

	prob, _ := p.engine.Combine(summary, regimeProfile(strategy), conditions)

	score := p.scorer.Score(scoring.Input{
		Probability:       prob,
		Summary:           summary,
		Regime:            conditions.Regime,
		RegimeWinRates:    strategy.RegimeWinRates,
		RiskReward:        candidate.RiskRewardRatio(),
		CurrentVolatility: conditions.Volatility,
		OptimalVolatility: strategy.OptimalVolatility,
	})

	if score < p.config.MinQualityScore {
		p.log.Info("candidate rejected on quality score",
			zap.String("strategy", strategy.Name),
			zap.Float64("score", score),
			zap.Float64("minimum", p.config.MinQualityScore))

		return rejected(ReasonScoreBelowMin, prob, score)
	}

	if prob < p.config.MinProbability {
		p.log.Info("candidate rejected on probability",
			zap.String("strategy", strategy.Name),
			zap.Float64("probability", prob),
			zap.Float64("minimum", p.config.MinProbability))

		return rejected(ReasonProbabilityBelow, prob, score)
	}

	enrichment := p.enrich(ctx, candidate, summary, conditions, prob, score)

	now := p.now()
	signal := types.Signal{
		ID:               uuid.New().String(),
		StrategyID:       strategy.ID,
		StrategyName:     strategy.Name,
		Symbol:           candidate.Symbol,
		Direction:        candidate.Direction,
		EntryPrice:       candidate.EntryPrice,
		StopLoss:         candidate.StopLoss,
		TakeProfit:       candidate.TakeProfit,
		ProbabilityScore: prob,
		QualityScore:     score,
		Confidence:       enrichment.ConfidenceLevel,
		Risk:             enrichment.RiskRating,
		Rationale:        enrichment.TradeExplanation,
		PositionSizing:   enrichment.PositionSizing,
		Status:           types.SignalStatusActive,
		CreatedAt:        now,
		ExpiresAt:        now.Add(p.config.ExpiryHorizon),
	}

	p.handoff(ctx, signal)

	p.log.Info("signal accepted",
		zap.String("signal_id", signal.ID),
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("probability", prob),
		zap.Float64("score", score))

	return Result{
		Status:      StatusAccepted,
		Reason:      "",
		Signal:      signal,
		Probability: prob,
		Score:       score,
	}
}

// enrich calls the optional enrichment collaborator with a bounded timeout.
// Any failure substitutes the conservative default response.
func (p *Pipeline) enrich(
	ctx context.Context,
	candidate types.SignalCandidate,
	summary types.BacktestSummary,
	conditions types.MarketConditions,
	prob, score float64,
) EnrichmentResponse {
	if p.enricher == nil {
		return DefaultEnrichment()
	}

	enrichCtx, cancel := context.WithTimeout(ctx, p.config.EnrichmentTimeout)
	defer cancel()

	resp, err := p.enricher.Enrich(enrichCtx, EnrichmentRequest{
		Symbol:            candidate.Symbol,
		Direction:         candidate.Direction,
		Entry:             candidate.EntryPrice,
		StopLoss:          candidate.StopLoss,
		TakeProfit:        candidate.TakeProfit,
		ProbabilityScore:  prob,
		SignalScore:       score,
		StrategyStats:     summary,
		MarketConditions:  conditions,
		RelevantKnowledge: optional.None[[]string](),
	})
	if err != nil {
		p.log.Warn("enrichment failed, using conservative default",
			zap.String("symbol", candidate.Symbol), zap.Error(err))

		return DefaultEnrichment()
	}

	return resp
}

// handoff stores and publishes the signal best-effort. Collaborator
// failures are logged and never roll the signal back.
func (p *Pipeline) handoff(ctx context.Context, signal types.Signal) {
	if p.signalStore != nil {
		if _, err := p.signalStore.StoreSignal(ctx, signal); err != nil {
			p.log.Error("signal store failed",
				zap.String("signal_id", signal.ID), zap.Error(err))
		}
	}

	if p.distributor != nil {
		p.distributor.Publish(signal)
	}
}

// regimeProfile derives the Bayesian regime profile from the strategy's
// per-regime win rates. Failure likelihoods are the complements of the
// success likelihoods; a strategy without regime history gets the default
// trending/ranging profile.
func regimeProfile(strategy types.Strategy) probability.RegimeProfile {
	success := map[types.MarketRegime]float64{
		types.RegimeTrending: 0.7,
		types.RegimeRanging:  0.5,
	}

	for regime, winRate := range strategy.RegimeWinRates {
		success[regime] = winRate / 100.0
	}

	failure := make(map[types.MarketRegime]float64, len(success))
	for regime, rate := range success {
		failure[regime] = 1 - rate
	}

	return probability.RegimeProfile{
		SuccessRates:      success,
		FailureRates:      failure,
		OptimalVolatility: strategy.OptimalVolatility,
	}
}

func rejected(reason string, prob, score float64) Result {
	return Result{
		Status:      StatusRejected,
		Reason:      reason,
		Signal:      types.Signal{},
		Probability: prob,
		Score:       score,
	}
}
