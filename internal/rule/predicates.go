package rule

import (
	"github.com/tradercopilot/signal-engine/internal/indicator"
	"github.com/tradercopilot/signal-engine/internal/types"
)

// Default thresholds for the RSI predicates.
const (
	defaultOversoldThreshold   = 30.0
	defaultOverboughtThreshold = 70.0
	defaultEMAPeriod           = 200
)

func checkRSIOversold(r types.Rule, candle types.MarketData) bool {
	rsi, ok := candle.Indicator(indicator.KeyRSI)
	if !ok {
		return false
	}

	return rsi < r.FloatParam("threshold", defaultOversoldThreshold)
}

func checkRSIOverbought(r types.Rule, candle types.MarketData) bool {
	rsi, ok := candle.Indicator(indicator.KeyRSI)
	if !ok {
		return false
	}

	return rsi > r.FloatParam("threshold", defaultOverboughtThreshold)
}

func checkAboveEMA(r types.Rule, candle types.MarketData) bool {
	ema, ok := candle.Indicator(indicator.EMAKey(r.IntParam("period", defaultEMAPeriod)))
	if !ok {
		return false
	}

	return candle.Close > ema
}

func checkBelowEMA(r types.Rule, candle types.MarketData) bool {
	ema, ok := candle.Indicator(indicator.EMAKey(r.IntParam("period", defaultEMAPeriod)))
	if !ok {
		return false
	}

	return candle.Close < ema
}

// checkLiquiditySweep detects a bullish sweep: the candle's wick takes out
// the recent low from the lookback structure while the close recovers back
// above it, leaving stop-loss liquidity consumed below the level.
func checkLiquiditySweep(_ types.Rule, candle types.MarketData) bool {
	recentLow, ok := candle.Indicator(indicator.KeyRecentLow)
	if !ok {
		return false
	}

	return candle.Low < recentLow && candle.Close > recentLow
}

// checkOrderBlock detects bullish order block mitigation: price trades down
// into the body of the previous bearish candle and closes back above its
// open, confirming the zone held.
func checkOrderBlock(_ types.Rule, candle types.MarketData) bool {
	prevOpen, okOpen := candle.Indicator(indicator.KeyPrevOpen)
	prevClose, okClose := candle.Indicator(indicator.KeyPrevClose)

	if !okOpen || !okClose {
		return false
	}

	// the prior candle must be bearish to form a bullish order block
	if prevClose >= prevOpen {
		return false
	}

	return candle.Low <= prevOpen && candle.Low >= prevClose && candle.Close > prevOpen
}

// Session boundaries in UTC hours, [start, end).
var sessionHours = map[types.TradingSession][2]int{
	types.SessionTokyo:   {0, 9},
	types.SessionLondon:  {7, 16},
	types.SessionNewYork: {13, 22},
}

func checkSession(session types.TradingSession) predicate {
	return func(_ types.Rule, candle types.MarketData) bool {
		hours, ok := sessionHours[session]
		if !ok {
			return false
		}

		hour := candle.Time.UTC().Hour()

		return hour >= hours[0] && hour < hours[1]
	}
}

// SessionAt returns the trading session for a point in time. Overlapping
// sessions resolve to the later market (London over Tokyo, New York over
// London), matching how liquidity shifts through the day.
func SessionAt(candle types.MarketData) types.TradingSession {
	hour := candle.Time.UTC().Hour()

	switch {
	case hour >= 13 && hour < 22:
		return types.SessionNewYork
	case hour >= 7 && hour < 13:
		return types.SessionLondon
	case hour >= 0 && hour < 7:
		return types.SessionTokyo
	default:
		return types.SessionAfterHours
	}
}
