package types

import "time"

// Exchange identifies the originating market data feed.
type Exchange string

const (
	ExchangeBinance Exchange = "binance"
	ExchangePolygon Exchange = "polygon"
	ExchangeReplay  Exchange = "replay"
)

// MarketData is one normalized OHLCV candle for a symbol.
// Closed is true once the candle interval has finished; only closed candles
// are eligible for signal generation.
type MarketData struct {
	Symbol string    `yaml:"symbol" json:"symbol" validate:"required"`
	Time   time.Time `yaml:"time" json:"time" validate:"required"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume"`
	// Closed indicates whether the candle interval is final.
	Closed bool `yaml:"closed" json:"closed"`
	// Exchange is the feed that produced this candle.
	Exchange Exchange `yaml:"exchange" json:"exchange"`
	// Indicators is the optional indicator snapshot attached by the
	// enrichment step before rule evaluation. Nil when not enriched.
	Indicators map[string]float64 `yaml:"indicators,omitempty" json:"indicators,omitempty"`
}

// Indicator returns a named indicator value from the snapshot.
func (m MarketData) Indicator(name string) (float64, bool) {
	if m.Indicators == nil {
		return 0, false
	}

	v, ok := m.Indicators[name]

	return v, ok
}

// MarketRegime is the coarse classification of current price behavior.
type MarketRegime string

const (
	RegimeTrending MarketRegime = "trending"
	RegimeRanging  MarketRegime = "ranging"
	RegimeUnknown  MarketRegime = "unknown"
)

// VolatilityLevel buckets current volatility on a five step ordinal scale.
type VolatilityLevel string

const (
	VolatilityVeryLow  VolatilityLevel = "very_low"
	VolatilityLow      VolatilityLevel = "low"
	VolatilityNormal   VolatilityLevel = "normal"
	VolatilityHigh     VolatilityLevel = "high"
	VolatilityVeryHigh VolatilityLevel = "very_high"
)

// Rank returns the ordinal position of the volatility level (1-5).
// Unknown levels rank as normal.
func (v VolatilityLevel) Rank() int {
	switch v {
	case VolatilityVeryLow:
		return 1
	case VolatilityLow:
		return 2
	case VolatilityNormal:
		return 3
	case VolatilityHigh:
		return 4
	case VolatilityVeryHigh:
		return 5
	default:
		return 3
	}
}

// TradingSession is the active market session derived from the candle time.
type TradingSession string

const (
	SessionTokyo      TradingSession = "tokyo"
	SessionLondon     TradingSession = "london"
	SessionNewYork    TradingSession = "new_york"
	SessionAfterHours TradingSession = "after_hours"
)

// MarketConditions describes the current market environment used by the
// probability engine and the scorer.
type MarketConditions struct {
	Regime MarketRegime `yaml:"regime" json:"regime"`
	// TrendStrength is the SMA divergence trend strength in percent.
	TrendStrength float64         `yaml:"trend_strength" json:"trend_strength"`
	Volatility    VolatilityLevel `yaml:"volatility" json:"volatility"`
	Session       TradingSession  `yaml:"session" json:"session"`
	// ATR is the average true range backing the volatility bucket.
	ATR float64 `yaml:"atr" json:"atr"`
}
