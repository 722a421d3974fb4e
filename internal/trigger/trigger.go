// Package trigger is the top-level orchestrator: it subscribes to the
// normalized candle stream, evaluates every active strategy against each
// closed candle, and drives matched candidates through the signal pipeline.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tradercopilot/signal-engine/internal/indicator"
	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/pipeline"
	"github.com/tradercopilot/signal-engine/internal/regime"
	"github.com/tradercopilot/signal-engine/internal/rule"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
	"github.com/tradercopilot/signal-engine/pkg/marketdata/provider"
	"go.uber.org/zap"
)

// Defaults for the per-symbol candle window and dispatch queue.
const (
	DefaultWindowSize = 500
	DefaultQueueSize  = 256
	minUsableWindow   = 2
)

// System holds the active strategy set and routes candles, in arrival order
// per symbol, through rule evaluation and the signal pipeline. Candles for
// different symbols are processed in parallel.
type System struct {
	ruleEngine *rule.Engine
	pipe       *pipeline.Pipeline
	snapshots  *indicator.SnapshotBuilder
	detector   *regime.Detector
	log        *logger.Logger

	windowSize int

	// strategies is read-mostly: evaluation takes a snapshot under RLock
	// so no lock is held across pipeline I/O.
	strategiesMu sync.RWMutex
	strategies   []types.Strategy

	// latest is the per-symbol latest-candle cache: single writer per
	// symbol (the symbol's dispatch goroutine), concurrent readers.
	latestMu sync.RWMutex
	latest   map[string]types.MarketData

	queues map[string]chan types.MarketData
	wg     sync.WaitGroup

	accepted atomic.Int64
}

// NewSystem wires the trigger system from its components.
func NewSystem(
	ruleEngine *rule.Engine,
	pipe *pipeline.Pipeline,
	snapshots *indicator.SnapshotBuilder,
	detector *regime.Detector,
	windowSize int,
	log *logger.Logger,
) (*System, error) {
	if ruleEngine == nil || pipe == nil || snapshots == nil || detector == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"trigger system requires rule engine, pipeline, snapshot builder and regime detector")
	}

	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	return &System{
		ruleEngine: ruleEngine,
		pipe:       pipe,
		snapshots:  snapshots,
		detector:   detector,
		log:        log,
		windowSize: windowSize,
		strategies: nil,
		latest:     make(map[string]types.MarketData),
		queues:     make(map[string]chan types.MarketData),
	}, nil
}

// AddStrategy registers a strategy for evaluation. The addition is visible
// to subsequently processed candles. Invalid strategies are refused.
func (s *System) AddStrategy(strategy types.Strategy) error {
	if strategy.ID == "" || strategy.Name == "" {
		return errors.New(errors.ErrCodeInvalidStrategy, "strategy requires an id and a name")
	}

	s.strategiesMu.Lock()
	defer s.strategiesMu.Unlock()

	s.strategies = append(s.strategies, strategy)
	s.log.Info("strategy added",
		zap.String("strategy_id", strategy.ID),
		zap.String("name", strategy.Name),
		zap.Int("rules", len(strategy.Rules)))

	return nil
}

// ActiveStrategies returns a snapshot of the registered strategy set.
func (s *System) ActiveStrategies() []types.Strategy {
	s.strategiesMu.RLock()
	defer s.strategiesMu.RUnlock()

	snapshot := make([]types.Strategy, len(s.strategies))
	copy(snapshot, s.strategies)

	return snapshot
}

// LatestCandle returns the most recent candle seen for a symbol, closed or
// not. Consumed by regime and history lookups.
func (s *System) LatestCandle(symbol string) (types.MarketData, bool) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()

	candle, ok := s.latest[symbol]

	return candle, ok
}

// SignalsGenerated reports how many signals the system has accepted.
func (s *System) SignalsGenerated() int64 {
	return s.accepted.Load()
}

// Run consumes the provider stream until the context is cancelled or the
// stream ends, then drains in-flight work before returning. Candles are
// dispatched to one goroutine per symbol so per-symbol order is preserved
// while symbols proceed in parallel.
func (s *System) Run(ctx context.Context, feed provider.Provider, symbols []string, interval string) error {
	s.log.Info("trigger system starting",
		zap.Strings("symbols", symbols),
		zap.String("interval", interval),
		zap.Int("strategies", len(s.ActiveStrategies())))

	var streamErr error

	for candle, err := range feed.Stream(ctx, symbols, interval) {
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			streamErr = err
			s.log.Error("market data stream error", zap.Error(err))

			break
		}

		s.dispatch(ctx, candle)
	}

	// stop intake, let per-symbol workers drain
	for _, queue := range s.queues {
		close(queue)
	}

	s.wg.Wait()

	s.log.Info("trigger system stopped",
		zap.Int64("signals_generated", s.accepted.Load()))

	if streamErr != nil {
		return errors.Wrap(errors.ErrCodeFeedFailed, "market data stream failed", streamErr)
	}

	return nil
}

func (s *System) dispatch(ctx context.Context, candle types.MarketData) {
	queue, ok := s.queues[candle.Symbol]
	if !ok {
		queue = make(chan types.MarketData, DefaultQueueSize)
		s.queues[candle.Symbol] = queue

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			// the window of closed candles is owned by this goroutine;
			// per-symbol arrival order is preserved by the queue
			var window []types.MarketData

			for c := range queue {
				window = s.process(ctx, c, window)
			}
		}()
	}

	queue <- candle
}

// process handles one candle for its symbol, in arrival order. Open candles
// only refresh the latest-candle cache; closed candles update the window,
// get an indicator snapshot, and are evaluated against every strategy.
// Returns the updated window.
func (s *System) process(ctx context.Context, candle types.MarketData, window []types.MarketData) []types.MarketData {
	s.latestMu.Lock()
	s.latest[candle.Symbol] = candle
	s.latestMu.Unlock()

	if !candle.Closed {
		return window
	}

	window = append(window, candle)
	if len(window) > s.windowSize {
		window = window[len(window)-s.windowSize:]
	}

	if len(window) >= minUsableWindow {
		candle = s.snapshots.Enrich(candle, window)
	}

	conditions := s.detector.Detect(window)

	for _, strategy := range s.ActiveStrategies() {
		s.evaluate(ctx, strategy, candle, conditions)
	}

	return window
}

// evaluate runs one strategy against one candle. Failures are contained:
// a panic in rule evaluation or the pipeline is recovered and logged so the
// remaining strategies and subsequent candles still run.
func (s *System) evaluate(ctx context.Context, strategy types.Strategy, candle types.MarketData, conditions types.MarketConditions) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("strategy evaluation panicked",
				zap.String("strategy", strategy.Name),
				zap.String("symbol", candle.Symbol),
				zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	candidate, matched := s.ruleEngine.Evaluate(strategy, candle)
	if !matched {
		return
	}

	s.log.Info("strategy triggered",
		zap.String("strategy", strategy.Name),
		zap.String("symbol", candle.Symbol),
		zap.String("direction", string(candidate.Direction)))

	result := s.pipe.Run(ctx, candidate, conditions)
	if result.Status == pipeline.StatusAccepted {
		s.accepted.Add(1)
	}
}
