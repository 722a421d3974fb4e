// Package gate validates that a strategy's historical performance clears the
// minimum thresholds before any signal from it may be considered.
package gate

import (
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

// Default thresholds mirroring the service configuration defaults.
const (
	DefaultMinTrades   = 100
	DefaultMinWinRate  = 55.0
	DefaultMinSharpe   = 1.5
	DefaultMaxDrawdown = 20.0
)

// Config holds the gate thresholds. All comparisons are boundary inclusive.
type Config struct {
	MinTrades   int     `yaml:"min_trades" json:"min_trades" validate:"gt=0"`
	MinWinRate  float64 `yaml:"min_win_rate" json:"min_win_rate" validate:"gte=0,lte=100"`
	MinSharpe   float64 `yaml:"min_sharpe" json:"min_sharpe"`
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown" validate:"gte=0,lte=100"`
}

// DefaultConfig returns the standard gate thresholds.
func DefaultConfig() Config {
	return Config{
		MinTrades:   DefaultMinTrades,
		MinWinRate:  DefaultMinWinRate,
		MinSharpe:   DefaultMinSharpe,
		MaxDrawdown: DefaultMaxDrawdown,
	}
}

// Gate checks backtest summaries against configured minimums.
type Gate struct {
	config Config
}

// NewGate creates a gate, failing fast on a non-positive trade minimum.
func NewGate(config Config) (*Gate, error) {
	if config.MinTrades <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold,
			"minimum trade count must be positive, got %d", config.MinTrades)
	}

	return &Gate{config: config}, nil
}

// Passes reports whether the summary clears every threshold. Conditions are
// conjunctive; the first failing condition short-circuits.
func (g *Gate) Passes(summary types.BacktestSummary) bool {
	if summary.TotalTrades < g.config.MinTrades {
		return false
	}

	if summary.WinRate < g.config.MinWinRate {
		return false
	}

	if summary.SharpeRatio < g.config.MinSharpe {
		return false
	}

	return summary.MaxDrawdown <= g.config.MaxDrawdown
}
