// Package config loads and validates the service configuration.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tradercopilot/signal-engine/pkg/errors"
	"github.com/tradercopilot/signal-engine/pkg/strategy"
)

// GateConfig holds the backtest quality gate thresholds.
type GateConfig struct {
	// MinTrades is the minimum backtest sample size.
	MinTrades int `json:"min_trades" yaml:"min_trades" jsonschema:"description=Minimum number of backtest trades,default=100" validate:"gt=0"`

	// MinWinRate is the minimum win rate in percent.
	MinWinRate float64 `json:"min_win_rate" yaml:"min_win_rate" jsonschema:"description=Minimum win rate percent,default=55" validate:"gte=0,lte=100"`

	// MinSharpe is the minimum Sharpe ratio.
	MinSharpe float64 `json:"min_sharpe" yaml:"min_sharpe" jsonschema:"description=Minimum Sharpe ratio,default=1.5"`

	// MaxDrawdown is the maximum tolerated drawdown in percent.
	MaxDrawdown float64 `json:"max_drawdown" yaml:"max_drawdown" jsonschema:"description=Maximum drawdown percent,default=20" validate:"gte=0"`
}

// PipelineConfig holds the signal acceptance thresholds.
type PipelineConfig struct {
	// MinQualityScore is the minimum quality score (0-10) for emission.
	MinQualityScore float64 `json:"min_quality_score" yaml:"min_quality_score" jsonschema:"description=Minimum signal quality score,default=7" validate:"gte=0,lte=10"`

	// MinProbability is the minimum combined probability (0-100).
	MinProbability float64 `json:"min_probability" yaml:"min_probability" jsonschema:"description=Minimum probability of success,default=60" validate:"gte=0,lte=100"`

	// ExpiryHours is the signal validity horizon in hours.
	ExpiryHours int `json:"expiry_hours" yaml:"expiry_hours" jsonschema:"description=Signal expiry horizon in hours,default=24" validate:"gt=0"`

	// EnrichmentTimeoutSeconds bounds each enrichment call.
	EnrichmentTimeoutSeconds int `json:"enrichment_timeout_seconds" yaml:"enrichment_timeout_seconds" jsonschema:"description=Enrichment call timeout in seconds,default=10" validate:"gt=0"`
}

// MonteCarloConfig holds simulation parameters.
type MonteCarloConfig struct {
	// Simulations is the number of Monte Carlo trials per evaluation.
	Simulations int `json:"simulations" yaml:"simulations" jsonschema:"description=Number of Monte Carlo simulations,default=10000" validate:"gt=0"`

	// Workers is the parallelism of the simulation worker pool.
	Workers int `json:"workers" yaml:"workers" jsonschema:"description=Simulation worker pool size,default=8" validate:"gt=0"`
}

// EnrichmentConfig holds the optional LLM enrichment settings.
type EnrichmentConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" jsonschema:"description=Enable LLM enrichment"`
	APIKey  string `json:"api_key" yaml:"api_key" jsonschema:"description=OpenAI API key"`
	Model   string `json:"model" yaml:"model" jsonschema:"description=Model name,default=gpt-4o"`
}

// ServiceConfig is the top level configuration of the signal engine.
type ServiceConfig struct {
	// Symbols to subscribe to on the live feed.
	Symbols []string `json:"symbols" yaml:"symbols" jsonschema:"description=Symbols to watch" validate:"required,min=1"`

	// Interval is the candle interval, e.g. 1m or 5m.
	Interval string `json:"interval" yaml:"interval" jsonschema:"description=Candle interval,default=1m" validate:"required"`

	// Provider selects the market data feed (binance or replay).
	Provider string `json:"provider" yaml:"provider" jsonschema:"description=Market data provider,enum=binance,enum=replay,default=binance" validate:"required,oneof=binance replay"`

	// PolygonAPIKey is used by the download command for historical backfill.
	PolygonAPIKey string `json:"polygon_api_key" yaml:"polygon_api_key" jsonschema:"description=Polygon API key for backfill"`

	// DatabasePath is the DuckDB file for strategies, backtests and signals.
	DatabasePath string `json:"database_path" yaml:"database_path" jsonschema:"description=DuckDB database path,default=signals.db" validate:"required"`

	// ReplayDataPath is the recorded market data file used when the
	// provider is "replay".
	ReplayDataPath string `json:"replay_data_path" yaml:"replay_data_path" jsonschema:"description=Recorded market data file for replay runs" validate:"required_if=Provider replay"`

	// WebhookURL receives accepted signals as JSON POSTs when set.
	WebhookURL string `json:"webhook_url" yaml:"webhook_url" jsonschema:"description=Webhook to receive accepted signals"`

	// WindowSize is the number of closed candles kept per symbol for
	// indicator and regime computation.
	WindowSize int `json:"window_size" yaml:"window_size" jsonschema:"description=Closed candles kept per symbol,default=500" validate:"gt=0"`

	Gate       GateConfig       `json:"gate" yaml:"gate" jsonschema:"description=Backtest quality gate thresholds"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline" jsonschema:"description=Signal acceptance thresholds"`
	MonteCarlo MonteCarloConfig `json:"monte_carlo" yaml:"monte_carlo" jsonschema:"description=Monte Carlo simulation parameters"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" jsonschema:"description=LLM enrichment settings"`
}

// DefaultConfig returns the configuration used when a field is left unset.
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Symbols:        nil,
		Interval:       "1m",
		Provider:       "binance",
		PolygonAPIKey:  "",
		DatabasePath:   "signals.db",
		ReplayDataPath: "",
		WebhookURL:     "",
		WindowSize:     500,
		Gate: GateConfig{
			MinTrades:   100,
			MinWinRate:  55.0,
			MinSharpe:   1.5,
			MaxDrawdown: 20.0,
		},
		Pipeline: PipelineConfig{
			MinQualityScore:          7.0,
			MinProbability:           60.0,
			ExpiryHours:              24,
			EnrichmentTimeoutSeconds: 10,
		},
		MonteCarlo: MonteCarloConfig{
			Simulations: 10000,
			Workers:     8,
		},
		Enrichment: EnrichmentConfig{
			Enabled: false,
			APIKey:  "",
			Model:   "gpt-4o",
		},
	}
}

// Load reads, decodes and validates the YAML configuration at path.
// Unset fields fall back to defaults before validation.
func Load(path string) (ServiceConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ServiceConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	return Parse(content)
}

// Parse decodes and validates a YAML configuration document.
func Parse(content []byte) (ServiceConfig, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(content, &config); err != nil {
		return ServiceConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return ServiceConfig{}, err
	}

	return config, nil
}

// Validate checks the configuration struct tags.
func (c *ServiceConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid service config", err)
	}

	return nil
}

// EnrichmentTimeout returns the enrichment timeout as a duration.
func (c *ServiceConfig) EnrichmentTimeout() time.Duration {
	return time.Duration(c.Pipeline.EnrichmentTimeoutSeconds) * time.Second
}

// ExpiryHorizon returns the signal validity horizon as a duration.
func (c *ServiceConfig) ExpiryHorizon() time.Duration {
	return time.Duration(c.Pipeline.ExpiryHours) * time.Hour
}

// GetConfigSchema returns the JSON schema for ServiceConfig.
func GetConfigSchema() (string, error) {
	return strategy.ToJSONSchema(&ServiceConfig{}) //nolint:exhaustruct // Empty config for schema generation
}
