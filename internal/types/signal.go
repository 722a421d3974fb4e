package types

import "time"

// Direction is the trade direction of a signal.
type Direction string

const (
	DirectionLong  Direction = "BUY"
	DirectionShort Direction = "SELL"
)

// SignalStatus is the lifecycle status of an emitted signal. The engine
// only ever creates signals in the active state; expiry and closing are
// handled downstream.
type SignalStatus string

const (
	SignalStatusActive  SignalStatus = "active"
	SignalStatusExpired SignalStatus = "expired"
	SignalStatusClosed  SignalStatus = "closed"
)

// ConfidenceLevel is the enrichment verdict on signal confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// RiskRating is the enrichment verdict on trade risk.
type RiskRating string

const (
	RiskLow    RiskRating = "Low"
	RiskMedium RiskRating = "Medium"
	RiskHigh   RiskRating = "High"
)

// SignalCandidate is the transient output of a rule match. It lives only
// for the duration of one pipeline run.
type SignalCandidate struct {
	StrategyID string    `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Symbol     string    `yaml:"symbol" json:"symbol" validate:"required"`
	Direction  Direction `yaml:"direction" json:"direction" validate:"required,oneof=BUY SELL"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" validate:"gt=0"`
	StopLoss   float64   `yaml:"stop_loss" json:"stop_loss" validate:"gt=0"`
	TakeProfit float64   `yaml:"take_profit" json:"take_profit" validate:"gt=0"`
	// Time is the close time of the candle that triggered the match.
	Time time.Time `yaml:"time" json:"time"`
}

// RiskRewardRatio is the target-profit distance divided by the stop-loss
// distance. Returns 0 for a degenerate candidate with entry == stop.
func (c SignalCandidate) RiskRewardRatio() float64 {
	risk := c.EntryPrice - c.StopLoss
	if risk < 0 {
		risk = -risk
	}

	if risk == 0 {
		return 0
	}

	reward := c.TakeProfit - c.EntryPrice
	if reward < 0 {
		reward = -reward
	}

	return reward / risk
}

// Signal is the final scored, probability-ranked output of the pipeline.
// Ownership passes to the distribution boundary immediately after creation.
type Signal struct {
	ID           string    `yaml:"id" json:"id"`
	StrategyID   string    `yaml:"strategy_id" json:"strategy_id"`
	StrategyName string    `yaml:"strategy_name" json:"strategy_name"`
	Symbol       string    `yaml:"symbol" json:"symbol"`
	Direction    Direction `yaml:"direction" json:"direction"`
	EntryPrice   float64   `yaml:"entry_price" json:"entry_price"`
	StopLoss     float64   `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit   float64   `yaml:"take_profit" json:"take_profit"`
	// ProbabilityScore is the combined posterior/simulation probability
	// of success (0-100).
	ProbabilityScore float64 `yaml:"probability_score" json:"probability_score"`
	// QualityScore is the multi-factor signal quality score (0-10).
	QualityScore float64 `yaml:"quality_score" json:"quality_score"`
	// Confidence is the enrichment confidence tier.
	Confidence ConfidenceLevel `yaml:"confidence_level" json:"confidence_level"`
	// Risk is the enrichment risk tier.
	Risk RiskRating `yaml:"risk_rating" json:"risk_rating"`
	// Rationale is the human readable trade explanation.
	Rationale string `yaml:"trade_explanation" json:"trade_explanation"`
	// PositionSizing is the recommended position size in percent of capital.
	PositionSizing float64      `yaml:"position_sizing" json:"position_sizing"`
	Status         SignalStatus `yaml:"status" json:"status"`
	CreatedAt      time.Time    `yaml:"created_at" json:"created_at"`
	ExpiresAt      time.Time    `yaml:"expires_at" json:"expires_at"`
}
