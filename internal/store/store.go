package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/tradercopilot/signal-engine/internal/logger"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

// Store is the DuckDB-backed persistence layer for strategies, backtest
// summaries and emitted signals. It satisfies the pipeline's StrategyStore,
// BacktestSource and SignalStore collaborators.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens (or creates) the DuckDB database at dbPath. Use ":memory:"
// for an ephemeral store in tests.
func NewStore(dbPath string, logger *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to open database", err)
	}

	return &Store{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the tables used by the engine.
func (s *Store) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS strategies (
			id TEXT PRIMARY KEY,
			name TEXT,
			active BOOLEAN,
			rules TEXT,
			stop_loss_distance DOUBLE,
			take_profit_distance DOUBLE,
			optimal_volatility TEXT,
			regime_win_rates TEXT,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create strategies table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS backtest_results (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			total_trades INTEGER,
			win_rate DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown DOUBLE,
			profit_factor DOUBLE,
			expectancy DOUBLE,
			avg_win DOUBLE,
			avg_loss DOUBLE,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create backtest_results table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			strategy_name TEXT,
			symbol TEXT,
			direction TEXT,
			entry_price DOUBLE,
			stop_loss DOUBLE,
			take_profit DOUBLE,
			probability_score DOUBLE,
			quality_score DOUBLE,
			confidence_level TEXT,
			risk_rating TEXT,
			trade_explanation TEXT,
			position_sizing DOUBLE,
			status TEXT,
			created_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create signals table", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveStrategy inserts or replaces a strategy definition.
func (s *Store) SaveStrategy(ctx context.Context, strategy types.Strategy) error {
	rules, err := json.Marshal(strategy.Rules)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode rules", err)
	}

	winRates, err := json.Marshal(strategy.RegimeWinRates)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode regime win rates", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}

	deleteQuery := s.sq.Delete("strategies").Where(squirrel.Eq{"id": strategy.ID}).RunWith(tx)
	if _, err := deleteQuery.ExecContext(ctx); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to replace strategy", err)
	}

	insertQuery := s.sq.
		Insert("strategies").
		Columns(
			"id", "name", "active", "rules",
			"stop_loss_distance", "take_profit_distance",
			"optimal_volatility", "regime_win_rates", "updated_at",
		).
		Values(
			strategy.ID, strategy.Name, strategy.Active, string(rules),
			strategy.Risk.StopLossDistance, strategy.Risk.TakeProfitDistance,
			string(strategy.OptimalVolatility), string(winRates), time.Now().UTC(),
		).
		RunWith(tx)

	if _, err := insertQuery.ExecContext(ctx); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert strategy", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to commit transaction", err)
	}

	return nil
}

// GetStrategy returns the strategy with the given id.
func (s *Store) GetStrategy(ctx context.Context, id string) (types.Strategy, error) {
	query := s.sq.
		Select(
			"id", "name", "active", "rules",
			"stop_loss_distance", "take_profit_distance",
			"optimal_volatility", "regime_win_rates",
		).
		From("strategies").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db)

	strategy, err := scanStrategy(query.QueryRowContext(ctx))
	if err == sql.ErrNoRows {
		return types.Strategy{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", id)
	}

	if err != nil {
		return types.Strategy{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query strategy", err)
	}

	return strategy, nil
}

// ListActiveStrategies returns all strategies currently marked active.
func (s *Store) ListActiveStrategies(ctx context.Context) ([]types.Strategy, error) {
	query := s.sq.
		Select(
			"id", "name", "active", "rules",
			"stop_loss_distance", "take_profit_distance",
			"optimal_volatility", "regime_win_rates",
		).
		From("strategies").
		Where(squirrel.Eq{"active": true}).
		OrderBy("id").
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query strategies", err)
	}
	defer rows.Close()

	var strategies []types.Strategy

	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan strategy", err)
		}

		strategies = append(strategies, strategy)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate strategies", err)
	}

	return strategies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (types.Strategy, error) {
	var (
		strategy   types.Strategy
		rules      string
		volatility string
		winRates   string
	)

	err := row.Scan(
		&strategy.ID, &strategy.Name, &strategy.Active, &rules,
		&strategy.Risk.StopLossDistance, &strategy.Risk.TakeProfitDistance,
		&volatility, &winRates,
	)
	if err != nil {
		return types.Strategy{}, err
	}

	if rules != "" {
		if err := json.Unmarshal([]byte(rules), &strategy.Rules); err != nil {
			return types.Strategy{}, err
		}
	}

	if winRates != "" && winRates != "null" {
		if err := json.Unmarshal([]byte(winRates), &strategy.RegimeWinRates); err != nil {
			return types.Strategy{}, err
		}
	}

	strategy.OptimalVolatility = types.VolatilityLevel(volatility)

	return strategy, nil
}

// SaveBacktestSummary appends a backtest result for a strategy.
func (s *Store) SaveBacktestSummary(ctx context.Context, summary types.BacktestSummary) error {
	query := s.sq.
		Insert("backtest_results").
		Columns(
			"id", "strategy_id", "total_trades", "win_rate", "sharpe_ratio",
			"max_drawdown", "profit_factor", "expectancy", "avg_win", "avg_loss",
			"created_at",
		).
		Values(
			uuid.New().String(), summary.StrategyID, summary.TotalTrades,
			summary.WinRate, summary.SharpeRatio, summary.MaxDrawdown,
			summary.ProfitFactor, summary.Expectancy, summary.AvgWin,
			summary.AvgLoss, time.Now().UTC(),
		).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert backtest summary", err)
	}

	return nil
}

// LatestSummary returns the newest backtest summary for the strategy.
func (s *Store) LatestSummary(ctx context.Context, strategyID string) (types.BacktestSummary, error) {
	query := s.sq.
		Select(
			"strategy_id", "total_trades", "win_rate", "sharpe_ratio",
			"max_drawdown", "profit_factor", "expectancy", "avg_win", "avg_loss",
		).
		From("backtest_results").
		Where(squirrel.Eq{"strategy_id": strategyID}).
		OrderBy("created_at DESC").
		Limit(1).
		RunWith(s.db)

	var summary types.BacktestSummary

	err := query.QueryRowContext(ctx).Scan(
		&summary.StrategyID, &summary.TotalTrades, &summary.WinRate,
		&summary.SharpeRatio, &summary.MaxDrawdown, &summary.ProfitFactor,
		&summary.Expectancy, &summary.AvgWin, &summary.AvgLoss,
	)
	if err == sql.ErrNoRows {
		return types.BacktestSummary{}, errors.Newf(errors.ErrCodeBacktestNotFound, "no backtest results for strategy %s", strategyID)
	}

	if err != nil {
		return types.BacktestSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query backtest summary", err)
	}

	return summary, nil
}

// StoreSignal persists an emitted signal and returns its id.
func (s *Store) StoreSignal(ctx context.Context, signal types.Signal) (string, error) {
	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}

	query := s.sq.
		Insert("signals").
		Columns(
			"id", "strategy_id", "strategy_name", "symbol", "direction",
			"entry_price", "stop_loss", "take_profit",
			"probability_score", "quality_score",
			"confidence_level", "risk_rating", "trade_explanation",
			"position_sizing", "status", "created_at", "expires_at",
		).
		Values(
			signal.ID, signal.StrategyID, signal.StrategyName, signal.Symbol,
			string(signal.Direction), signal.EntryPrice, signal.StopLoss,
			signal.TakeProfit, signal.ProbabilityScore, signal.QualityScore,
			string(signal.Confidence), string(signal.Risk), signal.Rationale,
			signal.PositionSizing, string(signal.Status),
			signal.CreatedAt, signal.ExpiresAt,
		).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert signal", err)
	}

	return signal.ID, nil
}

// ListActiveSignals returns all signals still in the active state.
func (s *Store) ListActiveSignals(ctx context.Context) ([]types.Signal, error) {
	query := s.sq.
		Select(
			"id", "strategy_id", "strategy_name", "symbol", "direction",
			"entry_price", "stop_loss", "take_profit",
			"probability_score", "quality_score",
			"confidence_level", "risk_rating", "trade_explanation",
			"position_sizing", "status", "created_at", "expires_at",
		).
		From("signals").
		Where(squirrel.Eq{"status": string(types.SignalStatusActive)}).
		OrderBy("created_at DESC").
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query signals", err)
	}
	defer rows.Close()

	var signals []types.Signal

	for rows.Next() {
		var (
			signal                      types.Signal
			direction, confidence, risk string
			status                      string
		)

		err := rows.Scan(
			&signal.ID, &signal.StrategyID, &signal.StrategyName, &signal.Symbol,
			&direction, &signal.EntryPrice, &signal.StopLoss, &signal.TakeProfit,
			&signal.ProbabilityScore, &signal.QualityScore,
			&confidence, &risk, &signal.Rationale,
			&signal.PositionSizing, &status, &signal.CreatedAt, &signal.ExpiresAt,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan signal", err)
		}

		signal.Direction = types.Direction(direction)
		signal.Confidence = types.ConfidenceLevel(confidence)
		signal.Risk = types.RiskRating(risk)
		signal.Status = types.SignalStatus(status)

		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate signals", err)
	}

	return signals, nil
}

// ExpireSignals marks active signals whose expiry has passed as expired and
// returns the number of rows updated.
func (s *Store) ExpireSignals(ctx context.Context, now time.Time) (int64, error) {
	query := s.sq.
		Update("signals").
		Set("status", string(types.SignalStatusExpired)).
		Where(squirrel.Eq{"status": string(types.SignalStatusActive)}).
		Where(squirrel.Lt{"expires_at": now}).
		RunWith(s.db)

	result, err := query.ExecContext(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreFailed, "failed to expire signals", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreFailed, "failed to count expired signals", err)
	}

	if updated > 0 && s.logger != nil {
		s.logger.Info("Expired signals", zap.Int64("count", updated))
	}

	return updated, nil
}
