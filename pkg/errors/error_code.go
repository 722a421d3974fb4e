package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199). These fail fast at construction.
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidWeights       ErrorCode = 101
	ErrCodeInvalidParameter     ErrorCode = 102
	ErrCodeInvalidThreshold     ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104
	ErrCodeInvalidVersion       ErrorCode = 105

	// Data-absence errors (200-299). These produce local rejections.
	ErrCodeStrategyNotFound ErrorCode = 200
	ErrCodeBacktestNotFound ErrorCode = 201
	ErrCodeDataNotFound     ErrorCode = 202
	ErrCodeQueryFailed      ErrorCode = 203

	// Numeric-degeneracy errors (300-399). Recovered with neutral fallbacks.
	ErrCodeDegenerateProbability ErrorCode = 300
	ErrCodeScoringFailed         ErrorCode = 301
	ErrCodeSimulationFailed      ErrorCode = 302

	// Strategy and rule errors (400-499)
	ErrCodeInvalidStrategy     ErrorCode = 400
	ErrCodeInvalidRule         ErrorCode = 401
	ErrCodeSchemaVersion       ErrorCode = 402
	ErrCodeStrategyParseFailed ErrorCode = 403

	// Collaborator errors (500-599). Logged, never fatal to the pipeline.
	ErrCodeStoreFailed        ErrorCode = 500
	ErrCodeEnrichmentFailed   ErrorCode = 501
	ErrCodeDistributionFailed ErrorCode = 502

	// Market data errors (600-699)
	ErrCodeFeedFailed            ErrorCode = 600
	ErrCodeMarketDataWriteFailed ErrorCode = 601
	ErrCodeMarketDataParseFailed ErrorCode = 602
	ErrCodeInvalidTimespan       ErrorCode = 603
	ErrCodeInvalidProvider       ErrorCode = 604
)
