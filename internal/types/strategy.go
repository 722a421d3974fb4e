package types

// RuleType groups rule conditions by the kind of evidence they inspect.
type RuleType string

const (
	RuleTypePriceAction RuleType = "price_action"
	RuleTypeTechnical   RuleType = "technical"
	RuleTypeSession     RuleType = "session"
)

// RuleCondition names one predicate within a rule type.
type RuleCondition string

const (
	ConditionLiquiditySweep RuleCondition = "liquidity_sweep"
	ConditionOrderBlock     RuleCondition = "order_block"
	ConditionRSIOversold    RuleCondition = "rsi_oversold"
	ConditionRSIOverbought  RuleCondition = "rsi_overbought"
	ConditionAboveEMA       RuleCondition = "above_ema"
	ConditionBelowEMA       RuleCondition = "below_ema"
	ConditionTokyoSession   RuleCondition = "tokyo_session"
	ConditionLondonSession  RuleCondition = "london_session"
	ConditionNewYorkSession RuleCondition = "new_york_session"
)

// Rule is one predicate in a strategy's rule set. All rules in a set must
// pass for the strategy to match (AND semantics).
type Rule struct {
	Type      RuleType       `yaml:"type" json:"type" validate:"required"`
	Condition RuleCondition  `yaml:"condition" json:"condition" validate:"required"`
	Params    map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// FloatParam reads a numeric rule parameter, returning def when absent or
// not a number. JSON decoding yields float64 for all numbers.
func (r Rule) FloatParam(name string, def float64) float64 {
	if r.Params == nil {
		return def
	}

	switch v := r.Params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// IntParam reads an integer rule parameter, returning def when absent.
func (r Rule) IntParam(name string, def int) int {
	return int(r.FloatParam(name, float64(def)))
}

// RiskManagement holds a strategy's stop and target distances expressed in
// instrument pip/tick units. The unit scale is resolved per symbol at
// evaluation time.
type RiskManagement struct {
	StopLossDistance   float64 `yaml:"stop_loss_distance" json:"stop_loss_distance" validate:"gt=0"`
	TakeProfitDistance float64 `yaml:"take_profit_distance" json:"take_profit_distance" validate:"gt=0"`
}

// Strategy is a rule-based trading strategy. Strategies are created and
// owned externally; the engine only reads them.
type Strategy struct {
	ID     string `yaml:"id" json:"id" validate:"required"`
	Name   string `yaml:"name" json:"name" validate:"required"`
	Active bool   `yaml:"active" json:"active"`
	// Rules is the ordered conjunctive rule set. A strategy with no rules
	// never matches.
	Rules []Rule         `yaml:"rules" json:"rules"`
	Risk  RiskManagement `yaml:"risk_management" json:"risk_management"`
	// OptimalVolatility is the volatility bucket the strategy performs
	// best in, from historical analysis.
	OptimalVolatility VolatilityLevel `yaml:"optimal_volatility,omitempty" json:"optimal_volatility,omitempty"`
	// RegimeWinRates maps market regimes to the strategy's historical win
	// rate (0-100) in that regime.
	RegimeWinRates map[MarketRegime]float64 `yaml:"regime_win_rates,omitempty" json:"regime_win_rates,omitempty"`
}

// BacktestSummary is the most recent aggregate backtest result for a
// strategy. Fetched once per pipeline run and never mutated.
type BacktestSummary struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	// TotalTrades is the number of trades in the backtest sample.
	TotalTrades int `yaml:"total_trades" json:"total_trades"`
	// WinRate is the percentage of winning trades (0-100).
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// SharpeRatio is the annualized risk-adjusted return.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the worst peak-to-trough equity loss in percent.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// ProfitFactor is gross profit divided by gross loss.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// Expectancy is the average expected profit per trade in percent.
	Expectancy float64 `yaml:"expectancy" json:"expectancy"`
	// AvgWin is the average winning trade return in percent.
	AvgWin float64 `yaml:"avg_win" json:"avg_win"`
	// AvgLoss is the average losing trade return in percent (negative).
	AvgLoss float64 `yaml:"avg_loss" json:"avg_loss"`
}
