package pipeline

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/tradercopilot/signal-engine/internal/types"
)

// StrategyStore loads strategy records. Strategies are owned externally;
// the pipeline only reads them.
type StrategyStore interface {
	// GetStrategy returns the strategy with the given id, or an error
	// carrying ErrCodeStrategyNotFound.
	GetStrategy(ctx context.Context, id string) (types.Strategy, error)
}

// BacktestSource provides the most recent backtest summary per strategy.
type BacktestSource interface {
	// LatestSummary returns the newest summary for the strategy, or an
	// error carrying ErrCodeBacktestNotFound.
	LatestSummary(ctx context.Context, strategyID string) (types.BacktestSummary, error)
}

// EnrichmentRequest is the context handed to the external enrichment
// service for rationale, confidence and position sizing.
type EnrichmentRequest struct {
	Symbol           string                 `json:"symbol"`
	Direction        types.Direction        `json:"direction"`
	Entry            float64                `json:"entry"`
	StopLoss         float64                `json:"stop_loss"`
	TakeProfit       float64                `json:"take_profit"`
	ProbabilityScore float64                `json:"probability_score"`
	SignalScore      float64                `json:"signal_score"`
	StrategyStats    types.BacktestSummary  `json:"strategy_stats"`
	MarketConditions types.MarketConditions `json:"market_conditions"`
	// RelevantKnowledge is optional supporting material from a knowledge
	// base.
	RelevantKnowledge optional.Option[[]string] `json:"relevant_knowledge,omitempty"`
}

// EnrichmentResponse is the enrichment verdict folded into the final signal.
type EnrichmentResponse struct {
	ConfidenceLevel  types.ConfidenceLevel `json:"confidence_level"`
	RiskRating       types.RiskRating      `json:"risk_rating"`
	TradeExplanation string                `json:"trade_explanation"`
	// PositionSizing is the recommended position size in percent of
	// capital.
	PositionSizing float64  `json:"position_sizing"`
	KeyRisks       []string `json:"key_risks"`
}

// Enricher is the optional external enrichment collaborator. Failures are
// never fatal to signal emission.
type Enricher interface {
	Enrich(ctx context.Context, req EnrichmentRequest) (EnrichmentResponse, error)
}

// SignalStore persists accepted signals. Failures are logged, not retried;
// the handoff is at-most-once best-effort.
type SignalStore interface {
	StoreSignal(ctx context.Context, signal types.Signal) (string, error)
}

// Distributor publishes accepted signals to an outbound channel.
// Publish is fire-and-forget; implementations log their own failures.
type Distributor interface {
	Publish(signal types.Signal)
}

// DefaultEnrichment is the conservative substitute used when enrichment
// fails or times out.
func DefaultEnrichment() EnrichmentResponse {
	return EnrichmentResponse{
		ConfidenceLevel:  types.ConfidenceLow,
		RiskRating:       types.RiskHigh,
		TradeExplanation: "Automated signal; enrichment unavailable.",
		PositionSizing:   1.0,
		KeyRisks:         []string{"enrichment unavailable"},
	}
}
