package indicator

import (
	"github.com/tradercopilot/signal-engine/internal/types"
)

// Default periods for the snapshot indicators.
const (
	DefaultRSIPeriod      = 14
	DefaultATRPeriod      = 14
	DefaultSweepLookback  = 20
	DefaultFastEMAPeriod  = 20
	DefaultSlowEMAPeriod  = 200
	minSnapshotWindowSize = 2
)

// SnapshotBuilder computes the indicator snapshot attached to closed candles
// before rule evaluation. EMAPeriods controls which EMA keys are emitted.
type SnapshotBuilder struct {
	RSIPeriod     int
	ATRPeriod     int
	SweepLookback int
	EMAPeriods    []int
}

// NewSnapshotBuilder creates a SnapshotBuilder with the default periods.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{
		RSIPeriod:     DefaultRSIPeriod,
		ATRPeriod:     DefaultATRPeriod,
		SweepLookback: DefaultSweepLookback,
		EMAPeriods:    []int{DefaultFastEMAPeriod, DefaultSlowEMAPeriod},
	}
}

// Build computes indicator values over the window (oldest first, ending with
// the candle being enriched) and returns the snapshot map. Indicators that
// lack sufficient history are simply omitted; rules fail closed on missing
// values, so a thin window narrows the rule surface rather than erroring.
func (b *SnapshotBuilder) Build(window []types.MarketData) map[string]float64 {
	if len(window) < minSnapshotWindowSize {
		return nil
	}

	snapshot := make(map[string]float64)

	if rsi, err := RSI(window, b.RSIPeriod); err == nil {
		snapshot[KeyRSI] = rsi
	}

	if atr, err := ATR(window, b.ATRPeriod); err == nil {
		snapshot[KeyATR] = atr
	}

	for _, period := range b.EMAPeriods {
		if ema, err := EMA(window, period); err == nil {
			snapshot[EMAKey(period)] = ema
		}
	}

	if high, low, err := RecentExtremes(window, b.SweepLookback); err == nil {
		snapshot[KeyRecentHigh] = high
		snapshot[KeyRecentLow] = low
	}

	prev := window[len(window)-2]
	snapshot[KeyPrevOpen] = prev.Open
	snapshot[KeyPrevHigh] = prev.High
	snapshot[KeyPrevLow] = prev.Low
	snapshot[KeyPrevClose] = prev.Close

	return snapshot
}

// Enrich returns a copy of the candle with the snapshot attached.
func (b *SnapshotBuilder) Enrich(candle types.MarketData, window []types.MarketData) types.MarketData {
	candle.Indicators = b.Build(window)

	return candle
}
