package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tradercopilot/signal-engine/internal/config"
	"github.com/tradercopilot/signal-engine/internal/distribution"
	"github.com/tradercopilot/signal-engine/internal/enrichment"
	"github.com/tradercopilot/signal-engine/internal/gate"
	"github.com/tradercopilot/signal-engine/internal/indicator"
	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/pipeline"
	"github.com/tradercopilot/signal-engine/internal/probability"
	"github.com/tradercopilot/signal-engine/internal/regime"
	"github.com/tradercopilot/signal-engine/internal/rule"
	"github.com/tradercopilot/signal-engine/internal/scoring"
	"github.com/tradercopilot/signal-engine/internal/store"
	"github.com/tradercopilot/signal-engine/internal/trigger"
	"github.com/tradercopilot/signal-engine/pkg/marketdata/provider"
	"github.com/tradercopilot/signal-engine/pkg/strategy"
)

const expirySweepInterval = time.Minute

func main() {
	configFlag := flag.String("config", "", "Path to service config file (required)")
	strategiesFlag := flag.String("strategies", "", "Directory of strategy definition files to load")

	flag.Parse()

	if *configFlag == "" {
		fmt.Println("Error: --config flag is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	db, err := store.NewStore(cfg.DatabasePath, zlog)
	if err != nil {
		zlog.Fatal("Failed to open store", zap.Error(err))
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		zlog.Fatal("Failed to initialize store", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *strategiesFlag != "" {
		if err := loadStrategyDir(ctx, db, *strategiesFlag, zlog); err != nil {
			zlog.Fatal("Failed to load strategies", zap.Error(err))
		}
	}

	qualityGate, err := gate.NewGate(gate.Config{
		MinTrades:   cfg.Gate.MinTrades,
		MinWinRate:  cfg.Gate.MinWinRate,
		MinSharpe:   cfg.Gate.MinSharpe,
		MaxDrawdown: cfg.Gate.MaxDrawdown,
	})
	if err != nil {
		zlog.Fatal("Failed to create backtest gate", zap.Error(err))
	}

	simulator := probability.NewSimulator(
		probability.WithSimulations(cfg.MonteCarlo.Simulations),
		probability.WithWorkers(cfg.MonteCarlo.Workers),
	)

	scorer, err := scoring.NewScorer(nil)
	if err != nil {
		zlog.Fatal("Failed to create scorer", zap.Error(err))
	}

	var enricher pipeline.Enricher

	if cfg.Enrichment.Enabled {
		openaiEnricher, err := enrichment.NewOpenAIEnricher(cfg.Enrichment.APIKey, cfg.Enrichment.Model)
		if err != nil {
			zlog.Fatal("Failed to create enricher", zap.Error(err))
		}

		enricher = openaiEnricher
	}

	var distributor pipeline.Distributor = distribution.NewLogDistributor(zlog)

	var webhook *distribution.WebhookDistributor

	if cfg.WebhookURL != "" {
		webhook, err = distribution.NewWebhookDistributor(cfg.WebhookURL, zlog)
		if err != nil {
			zlog.Fatal("Failed to create webhook distributor", zap.Error(err))
		}

		distributor = distribution.NewFanoutDistributor(distributor, webhook)
	}

	pipe, err := pipeline.NewPipeline(
		pipeline.Config{
			MinQualityScore:   cfg.Pipeline.MinQualityScore,
			MinProbability:    cfg.Pipeline.MinProbability,
			ExpiryHorizon:     cfg.ExpiryHorizon(),
			EnrichmentTimeout: cfg.EnrichmentTimeout(),
		},
		db, db, qualityGate,
		probability.NewEngine(simulator),
		scorer, enricher, db, distributor, zlog,
	)
	if err != nil {
		zlog.Fatal("Failed to create pipeline", zap.Error(err))
	}

	system, err := trigger.NewSystem(
		rule.NewEngine(), pipe,
		indicator.NewSnapshotBuilder(), regime.NewDetector(),
		cfg.WindowSize, zlog,
	)
	if err != nil {
		zlog.Fatal("Failed to create trigger system", zap.Error(err))
	}

	strategies, err := db.ListActiveStrategies(ctx)
	if err != nil {
		zlog.Fatal("Failed to list strategies", zap.Error(err))
	}

	if len(strategies) == 0 {
		zlog.Warn("No active strategies; the engine will consume the feed without emitting signals")
	}

	for _, s := range strategies {
		if err := system.AddStrategy(s); err != nil {
			zlog.Fatal("Failed to register strategy", zap.String("strategy_id", s.ID), zap.Error(err))
		}
	}

	var feed provider.Provider

	if cfg.Provider == string(provider.ProviderReplay) {
		feed, err = provider.NewReplayProviderFromDB(cfg.ReplayDataPath)
	} else {
		feed, err = provider.NewMarketDataProvider(provider.ProviderType(cfg.Provider), cfg.PolygonAPIKey)
	}

	if err != nil {
		zlog.Fatal("Failed to create market data provider", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		zlog.Info("Received interrupt signal, stopping")
		cancel()
	}()

	go sweepExpiredSignals(ctx, db, zlog)

	zlog.Info("Starting signal engine",
		zap.Strings("symbols", cfg.Symbols),
		zap.String("interval", cfg.Interval),
		zap.String("provider", cfg.Provider),
		zap.Int("strategies", len(strategies)),
	)

	if err := system.Run(ctx, feed, cfg.Symbols, cfg.Interval); err != nil && err != context.Canceled {
		zlog.Fatal("Engine error", zap.Error(err))
	}

	if webhook != nil {
		webhook.Flush()
	}

	zlog.Info("Signal engine stopped", zap.Int64("signals_generated", system.SignalsGenerated()))
}

// loadStrategyDir parses every definition file in dir and upserts it into
// the store.
func loadStrategyDir(ctx context.Context, db *store.Store, dir string, zlog *logger.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read strategy directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		parsed, err := strategy.Parse(content)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		if err := db.SaveStrategy(ctx, parsed); err != nil {
			return fmt.Errorf("failed to save %s: %w", entry.Name(), err)
		}

		zlog.Info("Loaded strategy definition",
			zap.String("file", entry.Name()),
			zap.String("strategy_id", parsed.ID))
	}

	return nil
}

// sweepExpiredSignals periodically marks overdue active signals as expired.
func sweepExpiredSignals(ctx context.Context, db *store.Store, zlog *logger.Logger) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := db.ExpireSignals(ctx, now.UTC()); err != nil {
				zlog.Warn("Signal expiry sweep failed", zap.Error(err))
			}
		}
	}
}
