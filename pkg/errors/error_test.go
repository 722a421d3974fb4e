package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidWeights, "weights must sum to 1.0")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidWeights, err.Code)
	suite.Equal("weights must sum to 1.0", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeStrategyNotFound, "strategy %s not found", "london-sweep")
	suite.NotNil(err)
	suite.Equal(ErrCodeStrategyNotFound, err.Code)
	suite.Equal("strategy london-sweep not found", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeQueryFailed, "failed to load strategy", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal("failed to load strategy", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("no rows in result set")
	err := Wrapf(ErrCodeBacktestNotFound, cause, "no backtest results for strategy %s", "s1")
	suite.NotNil(err)
	suite.Equal(ErrCodeBacktestNotFound, err.Code)
	suite.Equal("no backtest results for strategy s1", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidConfiguration, "missing symbols")
	suite.Equal("[100] missing symbols", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeStoreFailed, "failed to insert signal", cause)
	suite.Equal("[500] failed to insert signal: disk full", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeStoreFailed, "failed to insert signal", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidThreshold, "minimum trade count must be positive")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInvalidRule, "unknown rule condition")
	suite.Equal(ErrCodeInvalidRule, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	inner := New(ErrCodeEnrichmentFailed, "model unavailable")
	outer := fmt.Errorf("pipeline stage: %w", inner)

	suite.Equal(ErrCodeEnrichmentFailed, GetCode(outer))
}

func (suite *ErrorTestSuite) TestGetCodeUnknownForPlainError() {
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain error")))
	suite.Equal(ErrCodeUnknown, GetCode(nil))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeFeedFailed, "market data stream failed")
	suite.True(HasCode(err, ErrCodeFeedFailed))
	suite.False(HasCode(err, ErrCodeStoreFailed))
	suite.False(HasCode(nil, ErrCodeFeedFailed))
}

func (suite *ErrorTestSuite) TestIsMatchesChain() {
	cause := errors.New("underlying")
	err := Wrap(ErrCodeDistributionFailed, "failed to deliver signal", cause)
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestAsFindsTypedError() {
	err := fmt.Errorf("outer: %w", New(ErrCodeSchemaVersion, "major schema version mismatch"))

	var typed *Error
	suite.True(As(err, &typed))
	suite.Equal(ErrCodeSchemaVersion, typed.Code)
}
