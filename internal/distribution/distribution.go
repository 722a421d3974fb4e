// Package distribution delivers accepted signals to outbound channels.
// Delivery is fire-and-forget; a failed publish never blocks the pipeline.
package distribution

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/pipeline"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

const defaultPublishTimeout = 5 * time.Second

// LogDistributor writes accepted signals to the structured log. It is the
// default sink when no webhook is configured.
type LogDistributor struct {
	logger *logger.Logger
}

func NewLogDistributor(logger *logger.Logger) *LogDistributor {
	return &LogDistributor{logger: logger}
}

func (d *LogDistributor) Publish(signal types.Signal) {
	d.logger.Info("Signal published",
		zap.String("id", signal.ID),
		zap.String("strategy", signal.StrategyName),
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("entry", signal.EntryPrice),
		zap.Float64("stop_loss", signal.StopLoss),
		zap.Float64("take_profit", signal.TakeProfit),
		zap.Float64("probability", signal.ProbabilityScore),
		zap.Float64("score", signal.QualityScore),
		zap.String("confidence", string(signal.Confidence)),
	)
}

// WebhookDistributor POSTs each signal as JSON to a configured endpoint.
// Publishes run on their own goroutine with a bounded timeout.
type WebhookDistributor struct {
	url     string
	client  *http.Client
	logger  *logger.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func NewWebhookDistributor(url string, logger *logger.Logger) (*WebhookDistributor, error) {
	if url == "" {
		return nil, errors.New(errors.ErrCodeDistributionFailed, "webhook url required")
	}

	return &WebhookDistributor{
		url:     url,
		client:  &http.Client{Timeout: defaultPublishTimeout},
		logger:  logger,
		timeout: defaultPublishTimeout,
	}, nil
}

func (d *WebhookDistributor) Publish(signal types.Signal) {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		if err := d.post(signal); err != nil {
			d.logger.Warn("Webhook publish failed",
				zap.String("signal_id", signal.ID),
				zap.Error(err),
			)
		}
	}()
}

// Flush waits for in-flight publishes to finish. Called on shutdown.
func (d *WebhookDistributor) Flush() {
	d.wg.Wait()
}

func (d *WebhookDistributor) post(signal types.Signal) error {
	body, err := json.Marshal(signal)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDistributionFailed, "failed to encode signal", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrCodeDistributionFailed, "failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDistributionFailed, "failed to deliver signal", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf(errors.ErrCodeDistributionFailed, "webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// FanoutDistributor publishes to several distributors in order.
type FanoutDistributor struct {
	sinks []pipeline.Distributor
}

func NewFanoutDistributor(sinks ...pipeline.Distributor) *FanoutDistributor {
	return &FanoutDistributor{sinks: sinks}
}

func (d *FanoutDistributor) Publish(signal types.Signal) {
	for _, sink := range d.sinks {
		sink.Publish(signal)
	}
}
