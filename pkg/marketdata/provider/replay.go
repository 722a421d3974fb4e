package provider

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/marketdata/writer"
)

// ReplayProvider serves a fixed set of candles in order. It is used to
// drive the pipeline from recorded history in tests and dry runs.
type ReplayProvider struct {
	candles []types.MarketData
	writer  writer.MarketDataWriter

	// Delay between emitted candles. Zero replays as fast as the
	// consumer can drain.
	Delay time.Duration
}

func NewReplayProvider(candles []types.MarketData) *ReplayProvider {
	return &ReplayProvider{
		candles: candles,
		writer:  nil,
		Delay:   0,
	}
}

// NewReplayProviderFromDB loads candles recorded by the download command
// from a DuckDB market data file.
func NewReplayProviderFromDB(dbPath string) (*ReplayProvider, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open market data database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT time, symbol, open, high, low, close, volume, exchange
		FROM market_data
		ORDER BY time
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query market data: %w", err)
	}
	defer rows.Close()

	var candles []types.MarketData

	for rows.Next() {
		var (
			candle   types.MarketData
			exchange string
		)

		err := rows.Scan(
			&candle.Time, &candle.Symbol,
			&candle.Open, &candle.High, &candle.Low, &candle.Close,
			&candle.Volume, &exchange,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market data row: %w", err)
		}

		candle.Closed = true
		candle.Exchange = types.Exchange(exchange)

		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate market data: %w", err)
	}

	return NewReplayProvider(candles), nil
}

func (p *ReplayProvider) ConfigWriter(w writer.MarketDataWriter) {
	p.writer = w
}

// Download writes the replay candles within the date range through the
// configured writer.
func (p *ReplayProvider) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (string, error) {
	if p.writer == nil {
		return "", fmt.Errorf("writer is not configured")
	}

	if err := p.writer.Initialize(); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	total := float64(len(p.candles))

	for i, candle := range p.candles {
		if candle.Symbol != ticker || candle.Time.Before(startDate) || candle.Time.After(endDate) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := p.writer.Write(candle); err != nil {
			return "", fmt.Errorf("failed to write market data: %w", err)
		}

		if onProgress != nil {
			onProgress(float64(i+1), total, fmt.Sprintf("Replaying %s", ticker))
		}
	}

	outputPath, err := p.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// Stream yields the recorded candles for the requested symbols in order.
// The interval argument is ignored; candles replay at their recorded
// granularity.
func (p *ReplayProvider) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.MarketData, error] {
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	return func(yield func(types.MarketData, error) bool) {
		for _, candle := range p.candles {
			if len(wanted) > 0 && !wanted[candle.Symbol] {
				continue
			}

			select {
			case <-ctx.Done():
				return
			default:
			}

			if p.Delay > 0 {
				time.Sleep(p.Delay)
			}

			if !yield(candle, nil) {
				return
			}
		}
	}
}
