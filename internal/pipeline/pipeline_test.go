package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradercopilot/signal-engine/internal/gate"
	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/probability"
	"github.com/tradercopilot/signal-engine/internal/scoring"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

// fakeStrategyStore serves a fixed strategy set from memory.
type fakeStrategyStore struct {
	strategies map[string]types.Strategy
}

func (f *fakeStrategyStore) GetStrategy(_ context.Context, id string) (types.Strategy, error) {
	strategy, ok := f.strategies[id]
	if !ok {
		return types.Strategy{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", id)
	}

	return strategy, nil
}

type fakeBacktestSource struct {
	summaries map[string]types.BacktestSummary
}

func (f *fakeBacktestSource) LatestSummary(_ context.Context, strategyID string) (types.BacktestSummary, error) {
	summary, ok := f.summaries[strategyID]
	if !ok {
		return types.BacktestSummary{}, errors.Newf(errors.ErrCodeBacktestNotFound, "no backtest results for strategy %s", strategyID)
	}

	return summary, nil
}

type fakeEnricher struct {
	response EnrichmentResponse
	err      error
	blockFor time.Duration
	calls    int
}

func (f *fakeEnricher) Enrich(ctx context.Context, _ EnrichmentRequest) (EnrichmentResponse, error) {
	f.calls++

	if f.blockFor > 0 {
		select {
		case <-ctx.Done():
			return EnrichmentResponse{}, ctx.Err()
		case <-time.After(f.blockFor):
		}
	}

	return f.response, f.err
}

type fakeSignalStore struct {
	stored []types.Signal
	err    error
}

func (f *fakeSignalStore) StoreSignal(_ context.Context, signal types.Signal) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.stored = append(f.stored, signal)

	return signal.ID, nil
}

type fakeDistributor struct {
	published []types.Signal
}

func (f *fakeDistributor) Publish(signal types.Signal) {
	f.published = append(f.published, signal)
}

type PipelineTestSuite struct {
	suite.Suite
	strategies  *fakeStrategyStore
	backtests   *fakeBacktestSource
	enricher    *fakeEnricher
	signalStore *fakeSignalStore
	distributor *fakeDistributor
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (suite *PipelineTestSuite) SetupTest() {
	strategy := types.Strategy{
		ID:     "s1",
		Name:   "London Sweep",
		Active: true,
		Rules: []types.Rule{
			{Type: types.RuleTypePriceAction, Condition: types.ConditionLiquiditySweep},
		},
		Risk: types.RiskManagement{
			StopLossDistance:   20,
			TakeProfitDistance: 40,
		},
		OptimalVolatility: types.VolatilityNormal,
		RegimeWinRates: map[types.MarketRegime]float64{
			types.RegimeTrending: 70.0,
			types.RegimeRanging:  50.0,
		},
	}

	suite.strategies = &fakeStrategyStore{
		strategies: map[string]types.Strategy{"s1": strategy},
	}
	suite.backtests = &fakeBacktestSource{
		summaries: map[string]types.BacktestSummary{"s1": {
			StrategyID:  "s1",
			TotalTrades: 250,
			WinRate:     65.0,
			SharpeRatio: 2.2,
			MaxDrawdown: 8.0,
			AvgWin:      2.0,
			AvgLoss:     -1.0,
		}},
	}
	suite.enricher = &fakeEnricher{
		response: EnrichmentResponse{
			ConfidenceLevel:  types.ConfidenceHigh,
			RiskRating:       types.RiskMedium,
			TradeExplanation: "Sweep of session lows with trend support.",
			PositionSizing:   2.0,
			KeyRisks:         []string{"news volatility"},
		},
	}
	suite.signalStore = &fakeSignalStore{}
	suite.distributor = &fakeDistributor{}
}

func (suite *PipelineTestSuite) newPipeline(config Config) *Pipeline {
	qualityGate, err := gate.NewGate(gate.DefaultConfig())
	suite.Require().NoError(err)

	scorer, err := scoring.NewScorer(nil)
	suite.Require().NoError(err)

	engine := probability.NewEngine(probability.NewSimulator(
		probability.WithSimulations(2000),
		probability.WithWorkers(4),
		probability.WithSeed(11),
	))

	pipe, err := NewPipeline(
		config,
		suite.strategies, suite.backtests, qualityGate, engine, scorer,
		suite.enricher, suite.signalStore, suite.distributor,
		logger.NewNopLogger(),
	)
	suite.Require().NoError(err)

	return pipe
}

func candidate() types.SignalCandidate {
	return types.SignalCandidate{
		StrategyID: "s1",
		Symbol:     "EURUSD",
		Direction:  types.DirectionLong,
		EntryPrice: 1.08450,
		StopLoss:   1.08250,
		TakeProfit: 1.08850,
		Time:       time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func favorableConditions() types.MarketConditions {
	return types.MarketConditions{
		Regime:        types.RegimeTrending,
		TrendStrength: 1.2,
		Volatility:    types.VolatilityNormal,
		Session:       types.SessionLondon,
		ATR:           0.0012,
	}
}

func (suite *PipelineTestSuite) TestNewPipelineRequiresCoreCollaborators() {
	_, err := NewPipeline(DefaultConfig(), nil, suite.backtests, nil, nil, nil, nil, nil, nil, logger.NewNopLogger())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *PipelineTestSuite) TestAcceptedSignalIsConsistent() {
	pipe := suite.newPipeline(DefaultConfig())

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Require().Equal(StatusAccepted, result.Status)
	suite.Empty(result.Reason)

	signal := result.Signal
	suite.NotEmpty(signal.ID)
	suite.Equal("s1", signal.StrategyID)
	suite.Equal("London Sweep", signal.StrategyName)
	suite.Equal("EURUSD", signal.Symbol)
	suite.Equal(types.DirectionLong, signal.Direction)
	suite.Equal(types.SignalStatusActive, signal.Status)

	// Result fields mirror the embedded signal.
	suite.Equal(result.Probability, signal.ProbabilityScore)
	suite.Equal(result.Score, signal.QualityScore)
	suite.GreaterOrEqual(signal.ProbabilityScore, 60.0)
	suite.GreaterOrEqual(signal.QualityScore, 7.0)

	// Expiry sits one horizon after creation.
	suite.Equal(signal.CreatedAt.Add(24*time.Hour), signal.ExpiresAt)

	// Enrichment verdict folded in.
	suite.Equal(types.ConfidenceHigh, signal.Confidence)
	suite.Equal(types.RiskMedium, signal.Risk)
	suite.InDelta(2.0, signal.PositionSizing, 1e-9)

	// Handoff reached both collaborators.
	suite.Require().Len(suite.signalStore.stored, 1)
	suite.Require().Len(suite.distributor.published, 1)
	suite.Equal(signal.ID, suite.signalStore.stored[0].ID)
	suite.Equal(signal.ID, suite.distributor.published[0].ID)
}

func (suite *PipelineTestSuite) TestUnknownStrategyRejected() {
	pipe := suite.newPipeline(DefaultConfig())

	unknown := candidate()
	unknown.StrategyID = "ghost"

	result := pipe.Run(context.Background(), unknown, favorableConditions())

	suite.Equal(StatusRejected, result.Status)
	suite.Equal(ReasonStrategyMissing, result.Reason)
	suite.Empty(suite.signalStore.stored)
}

func (suite *PipelineTestSuite) TestMissingBacktestRejected() {
	delete(suite.backtests.summaries, "s1")
	pipe := suite.newPipeline(DefaultConfig())

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Equal(StatusRejected, result.Status)
	suite.Equal(ReasonBacktestMissing, result.Reason)
}

func (suite *PipelineTestSuite) TestGateFailureRejected() {
	summary := suite.backtests.summaries["s1"]
	summary.TotalTrades = 40
	suite.backtests.summaries["s1"] = summary

	pipe := suite.newPipeline(DefaultConfig())

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Equal(StatusRejected, result.Status)
	suite.Equal(ReasonGateFailed, result.Reason)
	suite.Zero(suite.enricher.calls)
}

func (suite *PipelineTestSuite) TestScoreThresholdRejects() {
	config := DefaultConfig()
	config.MinQualityScore = 10.0

	pipe := suite.newPipeline(config)

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Equal(StatusRejected, result.Status)
	suite.Equal(ReasonScoreBelowMin, result.Reason)
	suite.Greater(result.Probability, 0.0)
	suite.Zero(suite.enricher.calls)
}

func (suite *PipelineTestSuite) TestProbabilityThresholdRejects() {
	config := DefaultConfig()
	config.MinQualityScore = 0.1
	config.MinProbability = 99.9

	pipe := suite.newPipeline(config)

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Equal(StatusRejected, result.Status)
	suite.Equal(ReasonProbabilityBelow, result.Reason)
}

func (suite *PipelineTestSuite) TestEnrichmentErrorFallsBackToDefault() {
	suite.enricher.err = errors.New(errors.ErrCodeEnrichmentFailed, "model unavailable")

	pipe := suite.newPipeline(DefaultConfig())

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Require().Equal(StatusAccepted, result.Status)
	suite.Equal(types.ConfidenceLow, result.Signal.Confidence)
	suite.Equal(types.RiskHigh, result.Signal.Risk)
	suite.InDelta(1.0, result.Signal.PositionSizing, 1e-9)
}

func (suite *PipelineTestSuite) TestEnrichmentTimeoutFallsBackToDefault() {
	suite.enricher.blockFor = 500 * time.Millisecond

	config := DefaultConfig()
	config.EnrichmentTimeout = 10 * time.Millisecond

	pipe := suite.newPipeline(config)

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Require().Equal(StatusAccepted, result.Status)
	suite.Equal(types.ConfidenceLow, result.Signal.Confidence)
}

func (suite *PipelineTestSuite) TestNilEnricherUsesDefault() {
	suite.enricher = nil

	qualityGate, err := gate.NewGate(gate.DefaultConfig())
	suite.Require().NoError(err)

	scorer, err := scoring.NewScorer(nil)
	suite.Require().NoError(err)

	engine := probability.NewEngine(probability.NewSimulator(
		probability.WithSimulations(2000),
		probability.WithWorkers(4),
		probability.WithSeed(11),
	))

	pipe, err := NewPipeline(
		DefaultConfig(),
		suite.strategies, suite.backtests, qualityGate, engine, scorer,
		nil, suite.signalStore, suite.distributor,
		logger.NewNopLogger(),
	)
	suite.Require().NoError(err)

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Require().Equal(StatusAccepted, result.Status)
	suite.Equal(types.ConfidenceLow, result.Signal.Confidence)
}

func (suite *PipelineTestSuite) TestStoreFailureDoesNotBlockPublish() {
	suite.signalStore.err = errors.New(errors.ErrCodeStoreFailed, "disk full")

	pipe := suite.newPipeline(DefaultConfig())

	result := pipe.Run(context.Background(), candidate(), favorableConditions())

	suite.Equal(StatusAccepted, result.Status)
	suite.Len(suite.distributor.published, 1)
}
