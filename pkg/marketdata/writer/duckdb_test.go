package writer

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradercopilot/signal-engine/internal/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	dbPath string
	writer MarketDataWriter
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupTest() {
	suite.dbPath = filepath.Join(suite.T().TempDir(), "market.duckdb")
	suite.writer = NewDuckDBWriter(suite.dbPath)
}

func (suite *DuckDBWriterTestSuite) TearDownTest() {
	suite.Require().NoError(suite.writer.Close())
}

func candle(minuteOffset int, close float64) types.MarketData {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	return types.MarketData{
		Symbol:   "BTCUSDT",
		Time:     start.Add(time.Duration(minuteOffset) * time.Minute),
		Open:     close - 10,
		High:     close + 20,
		Low:      close - 30,
		Close:    close,
		Volume:   1000,
		Closed:   true,
		Exchange: types.ExchangeBinance,
	}
}

func (suite *DuckDBWriterTestSuite) TestWriteBeforeInitializeFails() {
	err := suite.writer.Write(candle(0, 42000))
	suite.Require().Error(err)
}

func (suite *DuckDBWriterTestSuite) TestFinalizeBeforeInitializeFails() {
	_, err := suite.writer.Finalize()
	suite.Require().Error(err)
}

func (suite *DuckDBWriterTestSuite) TestWriteAndFinalizePersistsCandles() {
	suite.Require().NoError(suite.writer.Initialize())

	suite.Require().NoError(suite.writer.Write(candle(0, 42000)))
	suite.Require().NoError(suite.writer.Write(candle(1, 42100)))
	suite.Require().NoError(suite.writer.Write(candle(2, 42050)))

	path, err := suite.writer.Finalize()
	suite.Require().NoError(err)
	suite.Equal(suite.dbPath, path)
	suite.Require().NoError(suite.writer.Close())

	db, err := sql.Open("duckdb", suite.dbPath)
	suite.Require().NoError(err)
	defer db.Close()

	var count int
	suite.Require().NoError(db.QueryRow("SELECT COUNT(*) FROM market_data").Scan(&count))
	suite.Equal(3, count)

	var symbol, exchange string
	var closePrice float64
	row := db.QueryRow("SELECT symbol, close, exchange FROM market_data ORDER BY time LIMIT 1")
	suite.Require().NoError(row.Scan(&symbol, &closePrice, &exchange))
	suite.Equal("BTCUSDT", symbol)
	suite.InDelta(42000.0, closePrice, 1e-9)
	suite.Equal("binance", exchange)
}

func (suite *DuckDBWriterTestSuite) TestCloseWithoutFinalizeDiscardsWrites() {
	suite.Require().NoError(suite.writer.Initialize())
	suite.Require().NoError(suite.writer.Write(candle(0, 42000)))
	suite.Require().NoError(suite.writer.Close())

	db, err := sql.Open("duckdb", suite.dbPath)
	suite.Require().NoError(err)
	defer db.Close()

	var count int
	suite.Require().NoError(db.QueryRow("SELECT COUNT(*) FROM market_data").Scan(&count))
	suite.Zero(count)
}
