package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) TestNewClientValidatesConfig() {
	_, err := NewClient(ClientConfig{
		ProviderType: ProviderType("kraken"),
		WriterType:   WriterDuckDB,
		DataPath:     "data",
	}, nil)
	suite.Require().Error(err)

	// polygon requires an API key
	_, err = NewClient(ClientConfig{
		ProviderType: ProviderPolygon,
		WriterType:   WriterDuckDB,
		DataPath:     "data",
	}, nil)
	suite.Require().Error(err)

	client, err := NewClient(ClientConfig{
		ProviderType: ProviderBinance,
		WriterType:   WriterDuckDB,
		DataPath:     suite.T().TempDir(),
	}, nil)
	suite.Require().NoError(err)
	suite.NotNil(client)
}

func (suite *ClientTestSuite) TestDownloadValidatesParams() {
	client, err := NewClient(ClientConfig{
		ProviderType: ProviderBinance,
		WriterType:   WriterDuckDB,
		DataPath:     suite.T().TempDir(),
	}, nil)
	suite.Require().NoError(err)

	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	// end date must be after start date
	_, err = client.Download(context.Background(), DownloadParams{
		Ticker:     "BTCUSDT",
		StartDate:  start,
		EndDate:    start.Add(-time.Hour),
		Multiplier: 1,
		Timespan:   models.Minute,
	})
	suite.Require().Error(err)
	suite.Contains(err.Error(), "invalid download parameters")

	_, err = client.Download(context.Background(), DownloadParams{
		Ticker:     "",
		StartDate:  start,
		EndDate:    start.Add(time.Hour),
		Multiplier: 1,
		Timespan:   models.Minute,
	})
	suite.Require().Error(err)
}

func (suite *ClientTestSuite) TestSetupWriterBuildsOutputPath() {
	dataPath := suite.T().TempDir()

	client, err := NewClient(ClientConfig{
		ProviderType: ProviderBinance,
		WriterType:   WriterDuckDB,
		DataPath:     dataPath,
	}, nil)
	suite.Require().NoError(err)

	params := DownloadParams{
		Ticker:     "BTCUSDT",
		StartDate:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		Multiplier: 5,
		Timespan:   models.Minute,
	}

	w, outputPath, err := client.setupWriter(params)
	suite.Require().NoError(err)
	suite.Require().NotNil(w)
	suite.Require().NoError(w.Close())

	suite.Contains(outputPath, dataPath)
	suite.Contains(outputPath, "BTCUSDT_2026-01-02_2026-01-03_5_minute.duckdb")
}

type TimespanTestSuite struct {
	suite.Suite
}

func TestTimespanSuite(t *testing.T) {
	suite.Run(t, new(TimespanTestSuite))
}

func (suite *TimespanTestSuite) TestIsValid() {
	for _, timespan := range []Timespan{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"} {
		suite.True(timespan.IsValid(), string(timespan))
	}

	for _, timespan := range []Timespan{"", "1s", "2m", "1y", "minute"} {
		suite.False(timespan.IsValid(), string(timespan))
	}
}

func (suite *TimespanTestSuite) TestMultiplierAndTimespan() {
	tests := []struct {
		timespan   Timespan
		multiplier int
		models     models.Timespan
	}{
		{TimespanOneMinute, 1, models.Minute},
		{TimespanFifteenMinutes, 15, models.Minute},
		{TimespanOneHour, 1, models.Hour},
		{TimespanFourHours, 4, models.Hour},
		{TimespanOneDay, 1, models.Day},
		{TimespanThreeDays, 3, models.Day},
		{TimespanOneWeek, 1, models.Week},
		{TimespanOneMonth, 1, models.Month},
	}

	for _, tc := range tests {
		suite.Equal(tc.multiplier, tc.timespan.Multiplier(), string(tc.timespan))
		suite.Equal(tc.models, tc.timespan.Timespan(), string(tc.timespan))
	}
}
