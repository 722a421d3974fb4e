// Package regime classifies current price behavior into a market regime and
// a volatility bucket from a window of recent candles.
package regime

import (
	"math"

	"github.com/tradercopilot/signal-engine/internal/indicator"
	"github.com/tradercopilot/signal-engine/internal/rule"
	"github.com/tradercopilot/signal-engine/internal/types"
)

const (
	// minWindow is the minimum candle count for a classification; the
	// slow SMA needs 50 closes.
	minWindow = 50
	fastSMA   = 20
	slowSMA   = 50
	atrPeriod = 14
	// trendThreshold is the SMA divergence (percent) above which the
	// market counts as trending.
	trendThreshold = 0.5
)

// Detector classifies market conditions from candle windows.
type Detector struct{}

// NewDetector creates a regime detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect classifies the window (oldest first). Windows shorter than the
// slow moving average period yield the unknown regime with normal
// volatility, which downstream consumers treat as a neutral prior.
func (d *Detector) Detect(window []types.MarketData) types.MarketConditions {
	conditions := types.MarketConditions{
		Regime:        types.RegimeUnknown,
		TrendStrength: 0,
		Volatility:    types.VolatilityNormal,
		Session:       types.SessionAfterHours,
	}

	if len(window) > 0 {
		conditions.Session = rule.SessionAt(window[len(window)-1])
	}

	if len(window) < minWindow {
		return conditions
	}

	fast, errFast := indicator.SMA(window, fastSMA)
	slow, errSlow := indicator.SMA(window, slowSMA)

	if errFast != nil || errSlow != nil || slow == 0 {
		return conditions
	}

	strength := math.Abs(fast-slow) / slow * 100

	conditions.TrendStrength = strength
	if strength > trendThreshold {
		conditions.Regime = types.RegimeTrending
	} else {
		conditions.Regime = types.RegimeRanging
	}

	if atr, err := indicator.ATR(window, atrPeriod); err == nil {
		conditions.ATR = atr
		conditions.Volatility = classifyVolatility(window, atr)
	}

	return conditions
}

// classifyVolatility buckets the current ATR against its level relative to
// the window's mean true range. Ratios near 1 are normal; the buckets widen
// symmetrically from there.
func classifyVolatility(window []types.MarketData, currentATR float64) types.VolatilityLevel {
	mean := meanTrueRange(window)
	if mean == 0 {
		return types.VolatilityNormal
	}

	ratio := currentATR / mean

	switch {
	case ratio < 0.5:
		return types.VolatilityVeryLow
	case ratio < 0.8:
		return types.VolatilityLow
	case ratio <= 1.2:
		return types.VolatilityNormal
	case ratio <= 1.8:
		return types.VolatilityHigh
	default:
		return types.VolatilityVeryHigh
	}
}

func meanTrueRange(window []types.MarketData) float64 {
	if len(window) < 2 {
		return 0
	}

	sum := 0.0

	for i := 1; i < len(window); i++ {
		highLow := window[i].High - window[i].Low
		highClose := math.Abs(window[i].High - window[i-1].Close)
		lowClose := math.Abs(window[i].Low - window[i-1].Close)
		sum += math.Max(highLow, math.Max(highClose, lowClose))
	}

	return sum / float64(len(window)-1)
}
