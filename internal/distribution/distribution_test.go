package distribution

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

type DistributionTestSuite struct {
	suite.Suite
}

func TestDistributionSuite(t *testing.T) {
	suite.Run(t, new(DistributionTestSuite))
}

func testSignal() types.Signal {
	return types.Signal{
		ID:               "sig-1",
		StrategyID:       "s1",
		StrategyName:     "London Sweep",
		Symbol:           "EURUSD",
		Direction:        types.DirectionLong,
		EntryPrice:       1.08450,
		StopLoss:         1.08250,
		TakeProfit:       1.08850,
		ProbabilityScore: 74.5,
		QualityScore:     8.2,
		Confidence:       types.ConfidenceHigh,
		Risk:             types.RiskMedium,
		Status:           types.SignalStatusActive,
		CreatedAt:        time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		ExpiresAt:        time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
	}
}

func (suite *DistributionTestSuite) TestWebhookRequiresURL() {
	_, err := NewWebhookDistributor("", logger.NewNopLogger())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDistributionFailed))
}

func (suite *DistributionTestSuite) TestWebhookDeliversSignalJSON() {
	var (
		mu       sync.Mutex
		received []types.Signal
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal(http.MethodPost, r.Method)
		suite.Equal("application/json", r.Header.Get("Content-Type"))

		var signal types.Signal
		suite.Require().NoError(json.NewDecoder(r.Body).Decode(&signal))

		mu.Lock()
		received = append(received, signal)
		mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	distributor, err := NewWebhookDistributor(server.URL, logger.NewNopLogger())
	suite.Require().NoError(err)

	distributor.Publish(testSignal())
	distributor.Flush()

	mu.Lock()
	defer mu.Unlock()
	suite.Require().Len(received, 1)
	suite.Equal("sig-1", received[0].ID)
	suite.Equal("EURUSD", received[0].Symbol)
}

func (suite *DistributionTestSuite) TestWebhookFailureDoesNotBlock() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	distributor, err := NewWebhookDistributor(server.URL, logger.NewNopLogger())
	suite.Require().NoError(err)

	// failure is logged, Publish and Flush still return
	distributor.Publish(testSignal())
	distributor.Flush()
}

func (suite *DistributionTestSuite) TestWebhookUnreachableEndpoint() {
	distributor, err := NewWebhookDistributor("http://127.0.0.1:1", logger.NewNopLogger())
	suite.Require().NoError(err)

	distributor.Publish(testSignal())
	distributor.Flush()
}

func (suite *DistributionTestSuite) TestWebhookFlushWaitsForInflight() {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	distributor, err := NewWebhookDistributor(server.URL, logger.NewNopLogger())
	suite.Require().NoError(err)

	distributor.Publish(testSignal())

	done := make(chan struct{})
	go func() {
		distributor.Flush()
		close(done)
	}()

	select {
	case <-done:
		suite.Fail("flush returned before delivery finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.Fail("flush did not return after delivery finished")
	}
}

type recordingSink struct {
	signals []types.Signal
}

func (r *recordingSink) Publish(signal types.Signal) {
	r.signals = append(r.signals, signal)
}

func (suite *DistributionTestSuite) TestFanoutPublishesToAllSinks() {
	first := &recordingSink{}
	second := &recordingSink{}

	fanout := NewFanoutDistributor(first, second)
	fanout.Publish(testSignal())

	suite.Require().Len(first.signals, 1)
	suite.Require().Len(second.signals, 1)
	suite.Equal(first.signals[0].ID, second.signals[0].ID)
}

func (suite *DistributionTestSuite) TestLogDistributorPublish() {
	distributor := NewLogDistributor(logger.NewNopLogger())

	// must not panic with a nop logger
	distributor.Publish(testSignal())
}
