// Package rule evaluates a strategy's conjunctive rule set against one
// candle. Evaluation is a pure function with no shared mutable state, so it
// may run concurrently across strategies for the same candle.
package rule

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tradercopilot/signal-engine/internal/types"
)

// priceDecimals is the precision candidate prices are rounded to.
const priceDecimals = 5

// ruleKey identifies one predicate in the evaluation table.
type ruleKey struct {
	Type      types.RuleType
	Condition types.RuleCondition
}

// predicate evaluates one rule against a candle.
type predicate func(rule types.Rule, candle types.MarketData) bool

// bias is the directional lean a passing rule contributes.
type bias int

const (
	biasNone bias = iota
	biasLong
	biasShort
)

// Engine dispatches rules by (type, condition) through a closed evaluation
// table. Unknown pairs evaluate to false.
type Engine struct {
	table  map[ruleKey]predicate
	biases map[ruleKey]bias
}

// NewEngine creates a rule engine with the full predicate table.
func NewEngine() *Engine {
	e := &Engine{
		table:  make(map[ruleKey]predicate),
		biases: make(map[ruleKey]bias),
	}

	e.register(types.RuleTypeTechnical, types.ConditionRSIOversold, checkRSIOversold, biasLong)
	e.register(types.RuleTypeTechnical, types.ConditionRSIOverbought, checkRSIOverbought, biasShort)
	e.register(types.RuleTypeTechnical, types.ConditionAboveEMA, checkAboveEMA, biasLong)
	e.register(types.RuleTypeTechnical, types.ConditionBelowEMA, checkBelowEMA, biasShort)
	e.register(types.RuleTypePriceAction, types.ConditionLiquiditySweep, checkLiquiditySweep, biasLong)
	e.register(types.RuleTypePriceAction, types.ConditionOrderBlock, checkOrderBlock, biasLong)
	e.register(types.RuleTypeSession, types.ConditionTokyoSession, checkSession(types.SessionTokyo), biasNone)
	e.register(types.RuleTypeSession, types.ConditionLondonSession, checkSession(types.SessionLondon), biasNone)
	e.register(types.RuleTypeSession, types.ConditionNewYorkSession, checkSession(types.SessionNewYork), biasNone)

	return e
}

func (e *Engine) register(t types.RuleType, c types.RuleCondition, p predicate, b bias) {
	key := ruleKey{Type: t, Condition: c}
	e.table[key] = p
	e.biases[key] = b
}

// Evaluate runs the strategy's rule set against the candle. It returns the
// signal candidate and true on a full match. An inactive strategy or one
// with an empty rule set never matches.
func (e *Engine) Evaluate(strategy types.Strategy, candle types.MarketData) (types.SignalCandidate, bool) {
	if !strategy.Active || len(strategy.Rules) == 0 {
		return types.SignalCandidate{}, false
	}

	longVotes, shortVotes := 0, 0

	for _, r := range strategy.Rules {
		key := ruleKey{Type: r.Type, Condition: r.Condition}

		p, known := e.table[key]
		if !known || !p(r, candle) {
			// unknown (type, condition) pairs fail closed
			return types.SignalCandidate{}, false
		}

		switch e.biases[key] {
		case biasLong:
			longVotes++
		case biasShort:
			shortVotes++
		case biasNone:
		}
	}

	direction := types.DirectionLong
	if shortVotes > longVotes {
		direction = types.DirectionShort
	}

	return buildCandidate(strategy, candle, direction), true
}

// buildCandidate derives entry, stop and target prices from the strategy's
// risk distances and the instrument's unit scale.
func buildCandidate(strategy types.Strategy, candle types.MarketData, direction types.Direction) types.SignalCandidate {
	unit := UnitScale(candle.Symbol)
	entry := candle.Close

	stopDistance := strategy.Risk.StopLossDistance * unit
	targetDistance := strategy.Risk.TakeProfitDistance * unit

	var stop, target float64
	if direction == types.DirectionLong {
		stop = entry - stopDistance
		target = entry + targetDistance
	} else {
		stop = entry + stopDistance
		target = entry - targetDistance
	}

	return types.SignalCandidate{
		StrategyID: strategy.ID,
		Symbol:     candle.Symbol,
		Direction:  direction,
		EntryPrice: roundPrice(entry),
		StopLoss:   roundPrice(stop),
		TakeProfit: roundPrice(target),
		Time:       candle.Time,
	}
}

func roundPrice(price float64) float64 {
	rounded, _ := decimal.NewFromFloat(price).Round(priceDecimals).Float64()

	return rounded
}

// UnitScale returns the price value of one pip/tick unit for the symbol.
// JPY-quoted forex pairs tick in hundredths, other forex pairs in
// ten-thousandths; crypto and equity symbols are quoted in whole price units.
func UnitScale(symbol string) float64 {
	upper := strings.ToUpper(symbol)

	if !isForexPair(upper) {
		return 1.0
	}

	if strings.HasSuffix(upper, "JPY") {
		return 0.01
	}

	return 0.0001
}

// forex pairs in this system are six-letter currency pairs like EURUSD.
func isForexPair(symbol string) bool {
	if len(symbol) != 6 {
		return false
	}

	for _, c := range symbol {
		if c < 'A' || c > 'Z' {
			return false
		}
	}

	return knownCurrency(symbol[:3]) && knownCurrency(symbol[3:])
}

func knownCurrency(code string) bool {
	switch code {
	case "USD", "EUR", "GBP", "JPY", "CHF", "AUD", "NZD", "CAD":
		return true
	default:
		return false
	}
}
