package provider

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/marketdata/writer"
)

// WsKlineHandler handles incoming kline events from the websocket stream.
type WsKlineHandler func(event *BinanceWsKlineEvent)

// WsErrorHandler handles websocket errors.
type WsErrorHandler func(err error)

// BinanceWsKline mirrors the kline payload of a Binance websocket event.
type BinanceWsKline struct {
	StartTime int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	IsFinal   bool
}

// BinanceWsKlineEvent is a single kline update received over the websocket.
type BinanceWsKlineEvent struct {
	Symbol string
	Kline  BinanceWsKline
}

// BinanceWebSocketService abstracts the Binance websocket connection so
// tests can inject a fake service.
type BinanceWebSocketService interface {
	WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (doneC chan struct{}, stopC chan struct{}, err error)
}

// binanceWebSocketService adapts the go-binance websocket API to the
// BinanceWebSocketService interface.
type binanceWebSocketService struct{}

func (s *binanceWebSocketService) WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsKlineServe(symbol, interval, func(event *binance.WsKlineEvent) {
		handler(&BinanceWsKlineEvent{
			Symbol: event.Symbol,
			Kline: BinanceWsKline{
				StartTime: event.Kline.StartTime,
				Open:      event.Kline.Open,
				High:      event.Kline.High,
				Low:       event.Kline.Low,
				Close:     event.Kline.Close,
				Volume:    event.Kline.Volume,
				IsFinal:   event.Kline.IsFinal,
			},
		})
	}, binance.ErrHandler(errHandler))
}

type BinanceClient struct {
	client *binance.Client
	ws     BinanceWebSocketService
	writer writer.MarketDataWriter
}

func NewBinanceClient() (Provider, error) {
	client := binance.NewClient("", "")

	return &BinanceClient{
		client: client,
		ws:     &binanceWebSocketService{},
		writer: nil,
	}, nil
}

// NewBinanceClientWithWebSocket creates a client with an injected websocket
// service. Used by tests.
func NewBinanceClientWithWebSocket(client *binance.Client, ws BinanceWebSocketService) *BinanceClient {
	return &BinanceClient{
		client: client,
		ws:     ws,
		writer: nil,
	}
}

func (c *BinanceClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download downloads the historical klines data for the given ticker and date range from Binance.
// It converts the binance kline format to our internal MarketData format and writes it using the configured writer.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error) {
	interval, err := convertTimespanToBinanceInterval(timespan, multiplier)
	if err != nil {
		return "", fmt.Errorf("failed to convert timespan to Binance interval: %w", err)
	}

	if c.writer == nil {
		return "", fmt.Errorf("writer is not configured")
	}

	err = c.writer.Initialize()
	if err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	// Binance API uses milliseconds for timestamps
	startTimeMillis := startDate.UnixMilli()
	endTimeMillis := endDate.UnixMilli()

	// Use pagination to handle Binance API limits (max 500 data points per request)
	// Keep track of the last data point time to use as start time for next request
	currentStartTime := startTimeMillis

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Do(ctx)
		if err != nil {
			// Attempt to finalize/close even if fetch fails
			_, finalizeErr := c.writer.Finalize()
			if finalizeErr != nil {
				return "", fmt.Errorf("failed to fetch klines from Binance: %w; also failed to finalize writer: %v", err, finalizeErr)
			}

			return "", fmt.Errorf("failed to fetch klines from Binance: %w", err)
		}

		go onProgress(float64(currentStartTime), float64(endTimeMillis), fmt.Sprintf("Downloading %s klines from Binance", ticker))

		// Break conditions: no data or less than 500 records (last page)
		if len(klines) == 0 || len(klines) < 500 {
			if err := processKlines(c.writer, ticker, klines); err != nil {
				_, finalizeErr := c.writer.Finalize()
				if finalizeErr != nil {
					return "", fmt.Errorf("failed to process klines: %w; also failed to finalize writer: %v", err, finalizeErr)
				}

				return "", fmt.Errorf("failed to process klines: %w", err)
			}

			break
		}

		if err := processKlines(c.writer, ticker, klines); err != nil {
			_, finalizeErr := c.writer.Finalize()
			if finalizeErr != nil {
				return "", fmt.Errorf("failed to process klines: %w; also failed to finalize writer: %v", err, finalizeErr)
			}

			return "", fmt.Errorf("failed to process klines: %w", err)
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		lastKline := klines[len(klines)-1]
		currentStartTime = lastKline.CloseTime + 1

		if currentStartTime >= endTimeMillis {
			break
		}
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// processKlines converts Binance kline data to our internal MarketData format and writes it.
func processKlines(writer writer.MarketDataWriter, ticker string, klines []*binance.Kline) error {
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		marketData := types.MarketData{
			Symbol:   ticker,
			Time:     time.UnixMilli(k.OpenTime), // Using OpenTime as the timestamp for the bar
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
			Closed:   true,
			Exchange: types.ExchangeBinance,
		}

		if err := writer.Write(marketData); err != nil {
			return fmt.Errorf("failed to write market data: %w", err)
		}
	}

	return nil
}

// Stream returns an iterator over realtime klines for the given symbols.
// One websocket connection is opened per symbol; only finalized candles are
// marked Closed so downstream consumers can skip partial updates.
func (c *BinanceClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.MarketData, error] {
	return func(yield func(types.MarketData, error) bool) {
		if len(symbols) == 0 {
			yield(types.MarketData{}, fmt.Errorf("no symbols provided"))

			return
		}

		if !isValidBinanceInterval(interval) {
			yield(types.MarketData{}, fmt.Errorf("invalid interval: %s", interval))

			return
		}

		dataCh := make(chan types.MarketData, 256)
		errCh := make(chan error, len(symbols))

		var stopChans []chan struct{}

		for _, symbol := range symbols {
			_, stopC, err := c.ws.WsKlineServe(symbol, interval,
				func(event *BinanceWsKlineEvent) {
					select {
					case dataCh <- convertWsKlineToMarketData(event):
					case <-ctx.Done():
					}
				},
				func(err error) {
					select {
					case errCh <- fmt.Errorf("websocket error: %w", err):
					default:
					}
				})
			if err != nil {
				for _, stop := range stopChans {
					close(stop)
				}

				yield(types.MarketData{}, fmt.Errorf("failed to start websocket for %s: %w", symbol, err))

				return
			}

			stopChans = append(stopChans, stopC)
		}

		defer func() {
			for _, stop := range stopChans {
				close(stop)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errCh:
				if !yield(types.MarketData{}, err) {
					return
				}
			case data := <-dataCh:
				if !yield(data, nil) {
					return
				}
			}
		}
	}
}

// convertWsKlineToMarketData maps a websocket kline event to MarketData.
func convertWsKlineToMarketData(event *BinanceWsKlineEvent) types.MarketData {
	open, _ := strconv.ParseFloat(event.Kline.Open, 64)
	high, _ := strconv.ParseFloat(event.Kline.High, 64)
	low, _ := strconv.ParseFloat(event.Kline.Low, 64)
	closePrice, _ := strconv.ParseFloat(event.Kline.Close, 64)
	volume, _ := strconv.ParseFloat(event.Kline.Volume, 64)

	return types.MarketData{
		Symbol:   event.Symbol,
		Time:     time.UnixMilli(event.Kline.StartTime),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
		Closed:   event.Kline.IsFinal,
		Exchange: types.ExchangeBinance,
	}
}

// isValidBinanceInterval reports whether interval is one Binance accepts.
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func isValidBinanceInterval(interval string) bool {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m",
		"1h", "2h", "4h", "6h", "8h", "12h",
		"1d", "3d", "1w", "1M":
		return true
	default:
		return false
	}
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", fmt.Errorf("unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", fmt.Errorf("unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", fmt.Errorf("unsupported timespan for Binance: %s", timespan)
	}
}
