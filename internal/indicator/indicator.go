// Package indicator computes technical indicator values over candle windows
// and builds the indicator snapshot attached to closed candles before rule
// evaluation.
package indicator

import (
	"fmt"
	"math"

	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

// Snapshot key names. Rules look indicator values up by these keys.
const (
	KeyRSI        = "rsi"
	KeyATR        = "atr"
	KeyRecentHigh = "recent_high"
	KeyRecentLow  = "recent_low"
	KeyPrevOpen   = "prev_open"
	KeyPrevHigh   = "prev_high"
	KeyPrevLow    = "prev_low"
	KeyPrevClose  = "prev_close"
)

// EMAKey returns the snapshot key for an EMA of the given period, e.g. "ema_200".
func EMAKey(period int) string {
	return fmt.Sprintf("ema_%d", period)
}

// SMA returns the simple moving average of the last period closes.
func SMA(window []types.MarketData, period int) (float64, error) {
	if len(window) < period || period <= 0 {
		return 0, errors.Newf(errors.ErrCodeDataNotFound,
			"SMA requires %d candles, have %d", period, len(window))
	}

	sum := 0.0
	for _, c := range window[len(window)-period:] {
		sum += c.Close
	}

	return sum / float64(period), nil
}

// EMA returns the exponential moving average of the last period closes,
// seeded with an SMA over the first period values.
func EMA(window []types.MarketData, period int) (float64, error) {
	if len(window) < period || period <= 0 {
		return 0, errors.Newf(errors.ErrCodeDataNotFound,
			"EMA requires %d candles, have %d", period, len(window))
	}

	seed := 0.0
	for _, c := range window[:period] {
		seed += c.Close
	}

	ema := seed / float64(period)
	multiplier := 2.0 / float64(period+1)

	for _, c := range window[period:] {
		ema = (c.Close-ema)*multiplier + ema
	}

	return ema, nil
}

// RSI returns the Wilder relative strength index over the last period moves.
func RSI(window []types.MarketData, period int) (float64, error) {
	if len(window) < period+1 || period <= 0 {
		return 0, errors.Newf(errors.ErrCodeDataNotFound,
			"RSI requires %d candles, have %d", period+1, len(window))
	}

	var gains, losses float64

	recent := window[len(window)-period-1:]
	for i := 1; i < len(recent); i++ {
		change := recent[i].Close - recent[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100, nil
	}

	rs := (gains / float64(period)) / (losses / float64(period))

	return 100 - 100/(1+rs), nil
}

// ATR returns the average true range over the last period candles.
func ATR(window []types.MarketData, period int) (float64, error) {
	if len(window) < period+1 || period <= 0 {
		return 0, errors.Newf(errors.ErrCodeDataNotFound,
			"ATR requires %d candles, have %d", period+1, len(window))
	}

	sum := 0.0

	recent := window[len(window)-period-1:]
	for i := 1; i < len(recent); i++ {
		highLow := recent[i].High - recent[i].Low
		highClose := math.Abs(recent[i].High - recent[i-1].Close)
		lowClose := math.Abs(recent[i].Low - recent[i-1].Close)
		sum += math.Max(highLow, math.Max(highClose, lowClose))
	}

	return sum / float64(period), nil
}

// RecentExtremes returns the highest high and lowest low of the lookback
// candles preceding (not including) the final candle in the window.
func RecentExtremes(window []types.MarketData, lookback int) (high, low float64, err error) {
	if len(window) < lookback+1 || lookback <= 0 {
		return 0, 0, errors.Newf(errors.ErrCodeDataNotFound,
			"extremes require %d candles, have %d", lookback+1, len(window))
	}

	prior := window[len(window)-lookback-1 : len(window)-1]
	high = prior[0].High
	low = prior[0].Low

	for _, c := range prior[1:] {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}

	return high, low, nil
}
