package writer

import "github.com/tradercopilot/signal-engine/internal/types"

// MarketDataWriter persists downloaded candles. Implementations are used by
// the feed providers during historical backfill.
type MarketDataWriter interface {
	// Initialize prepares the writer for writing.
	Initialize() error
	// Write persists a single candle.
	Write(data types.MarketData) error
	// Finalize completes the writing process and returns the output path.
	Finalize() (string, error)
	// Close releases writer resources.
	Close() error
}
