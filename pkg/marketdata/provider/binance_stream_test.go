package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradercopilot/signal-engine/internal/types"
)

// mockBinanceWebSocketService implements BinanceWebSocketService for testing.
type mockBinanceWebSocketService struct {
	events     []*BinanceWsKlineEvent // Events to emit
	errors     []error                // Errors to emit
	startError error                  // Error on WsKlineServe call
	eventDelay time.Duration          // Delay between events
}

func (m *mockBinanceWebSocketService) WsKlineServe(
	symbol string,
	interval string,
	handler WsKlineHandler,
	errHandler WsErrorHandler,
) (doneC chan struct{}, stopC chan struct{}, err error) {
	if m.startError != nil {
		return nil, nil, m.startError
	}

	doneC = make(chan struct{})
	stopC = make(chan struct{})

	go func() {
		defer close(doneC)

		for _, event := range m.events {
			select {
			case <-stopC:
				return
			default:
				if m.eventDelay > 0 {
					time.Sleep(m.eventDelay)
				}
				handler(event)
			}
		}

		for _, err := range m.errors {
			errHandler(err)
		}

		// Wait for stop signal, but avoid blocking forever in tests
		select {
		case <-stopC:
		case <-time.After(5 * time.Second):
		}
	}()

	return doneC, stopC, nil
}

type BinanceStreamTestSuite struct {
	suite.Suite
}

func TestBinanceStreamSuite(t *testing.T) {
	suite.Run(t, new(BinanceStreamTestSuite))
}

func (suite *BinanceStreamTestSuite) TestStreamYieldsPartialAndFinalCandles() {
	// Partial updates carry Closed=false so consumers can keep a live
	// tick cache; finalized candles arrive with Closed=true.
	events := []*BinanceWsKlineEvent{
		{
			Symbol: "BTCUSDT",
			Kline: BinanceWsKline{
				StartTime: 1704067200000,
				Open:      "42000.50",
				High:      "42500.00",
				Low:       "41800.00",
				Close:     "42250.00",
				Volume:    "900.0",
				IsFinal:   false,
			},
		},
		{
			Symbol: "BTCUSDT",
			Kline: BinanceWsKline{
				StartTime: 1704067200000,
				Open:      "42000.50",
				High:      "42500.00",
				Low:       "41800.00",
				Close:     "42300.00",
				Volume:    "1000.5",
				IsFinal:   true,
			},
		},
	}

	mockWs := &mockBinanceWebSocketService{events: events}
	client := NewBinanceClientWithWebSocket(nil, mockWs)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var received []types.MarketData

	for data, err := range client.Stream(ctx, []string{"BTCUSDT"}, "1m") {
		if err != nil {
			break
		}
		received = append(received, data)
	}

	suite.Require().Len(received, 2)
	suite.Equal("BTCUSDT", received[0].Symbol)
	suite.False(received[0].Closed)
	suite.InDelta(42250.00, received[0].Close, 0.01)
	suite.True(received[1].Closed)
	suite.InDelta(42300.00, received[1].Close, 0.01)
	suite.Equal(types.ExchangeBinance, received[1].Exchange)
}

func (suite *BinanceStreamTestSuite) TestStreamMultipleSymbols() {
	mockWs := &mockBinanceWebSocketService{
		events: []*BinanceWsKlineEvent{
			{
				Symbol: "BTCUSDT",
				Kline: BinanceWsKline{
					StartTime: 1704067200000,
					Open:      "42000.00",
					High:      "42500.00",
					Low:       "41800.00",
					Close:     "42300.00",
					Volume:    "1000.0",
					IsFinal:   true,
				},
			},
		},
	}

	client := NewBinanceClientWithWebSocket(nil, mockWs)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var received int
	for _, err := range client.Stream(ctx, []string{"BTCUSDT", "ETHUSDT"}, "1m") {
		if err != nil {
			break
		}
		received++
	}

	// Should receive at least some data (exact count depends on timing)
	suite.GreaterOrEqual(received, 1)
}

func (suite *BinanceStreamTestSuite) TestStreamInvalidInterval() {
	client := NewBinanceClientWithWebSocket(nil, &mockBinanceWebSocketService{})

	var gotError bool
	var errorMsg string
	for _, err := range client.Stream(context.Background(), []string{"BTCUSDT"}, "7m") {
		if err != nil {
			gotError = true
			errorMsg = err.Error()
			break
		}
	}

	suite.True(gotError)
	suite.Contains(errorMsg, "invalid interval")
}

func (suite *BinanceStreamTestSuite) TestStreamEmptySymbols() {
	client := NewBinanceClientWithWebSocket(nil, &mockBinanceWebSocketService{})

	var gotError bool
	var errorMsg string
	for _, err := range client.Stream(context.Background(), []string{}, "1m") {
		if err != nil {
			gotError = true
			errorMsg = err.Error()
			break
		}
	}

	suite.True(gotError)
	suite.Contains(errorMsg, "no symbols provided")
}

func (suite *BinanceStreamTestSuite) TestStreamContextCancellation() {
	events := []*BinanceWsKlineEvent{
		{
			Symbol: "BTCUSDT",
			Kline: BinanceWsKline{
				StartTime: 1704067200000,
				Open:      "42000.00",
				High:      "42500.00",
				Low:       "41800.00",
				Close:     "42300.00",
				Volume:    "1000.0",
			},
		},
	}

	mockWs := &mockBinanceWebSocketService{
		events:     events,
		eventDelay: 50 * time.Millisecond,
	}
	client := NewBinanceClientWithWebSocket(nil, mockWs)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	iterationCount := 0
	for range client.Stream(ctx, []string{"BTCUSDT"}, "1m") {
		iterationCount++
		if iterationCount > 10 {
			break // Safety break
		}
	}

	suite.LessOrEqual(iterationCount, 10)
}

func (suite *BinanceStreamTestSuite) TestStreamConnectionError() {
	mockWs := &mockBinanceWebSocketService{
		startError: errors.New("connection refused"),
	}
	client := NewBinanceClientWithWebSocket(nil, mockWs)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var gotError bool
	var errorMsg string
	for _, err := range client.Stream(ctx, []string{"BTCUSDT"}, "1m") {
		if err != nil {
			gotError = true
			errorMsg = err.Error()
			break
		}
	}

	suite.True(gotError)
	suite.Contains(errorMsg, "failed to start websocket")
	suite.Contains(errorMsg, "connection refused")
}

func (suite *BinanceStreamTestSuite) TestStreamWebSocketError() {
	mockWs := &mockBinanceWebSocketService{
		events: []*BinanceWsKlineEvent{},
		errors: []error{errors.New("websocket disconnected")},
	}
	client := NewBinanceClientWithWebSocket(nil, mockWs)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var gotError bool
	var errorMsg string
	for _, err := range client.Stream(ctx, []string{"BTCUSDT"}, "1m") {
		if err != nil {
			gotError = true
			errorMsg = err.Error()
			break
		}
	}

	suite.True(gotError)
	suite.Contains(errorMsg, "websocket error")
	suite.Contains(errorMsg, "websocket disconnected")
}

func (suite *BinanceStreamTestSuite) TestConvertWsKlineToMarketData() {
	event := &BinanceWsKlineEvent{
		Symbol: "ETHUSDT",
		Kline: BinanceWsKline{
			StartTime: 1704067200000,
			Open:      "2300.50",
			High:      "2350.00",
			Low:       "2280.00",
			Close:     "2340.00",
			Volume:    "500.25",
			IsFinal:   true,
		},
	}

	data := convertWsKlineToMarketData(event)

	suite.Equal("ETHUSDT", data.Symbol)
	suite.Equal(time.UnixMilli(1704067200000), data.Time)
	suite.InDelta(2300.50, data.Open, 0.01)
	suite.InDelta(2350.00, data.High, 0.01)
	suite.InDelta(2280.00, data.Low, 0.01)
	suite.InDelta(2340.00, data.Close, 0.01)
	suite.InDelta(500.25, data.Volume, 0.01)
	suite.True(data.Closed)
	suite.Equal(types.ExchangeBinance, data.Exchange)
}

func (suite *BinanceStreamTestSuite) TestIsValidBinanceInterval() {
	for _, interval := range []string{"1m", "3m", "5m", "15m", "30m", "1h", "4h", "1d", "1w", "1M"} {
		suite.True(isValidBinanceInterval(interval), interval)
	}

	for _, interval := range []string{"", "2m", "7m", "10h", "1y", "1s"} {
		suite.False(isValidBinanceInterval(interval), interval)
	}
}
