package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidResolution    ErrorCode = 120

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound         ErrorCode = 200
	ErrCodeDataUnavailable      ErrorCode = 201
	ErrCodeQueryFailed          ErrorCode = 202
	ErrCodeHistoricalDataFailed ErrorCode = 203
	ErrCodeNoDataFound          ErrorCode = 204

	// Strategy errors (400-499)
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeDuplicateEvent       ErrorCode = 405
	ErrCodeNoEventsRegistered   ErrorCode = 406

	// Trading errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodeOrderNotFound     ErrorCode = 501
	ErrCodeMarketDataMissing ErrorCode = 502
	ErrCodeInsufficientFunds ErrorCode = 503

	// Backtest errors (600-699)
	ErrCodeBacktestStateNil    ErrorCode = 600
	ErrCodeBacktestInitFailed  ErrorCode = 601
	ErrCodeBacktestConfigError ErrorCode = 602
	ErrCodeBacktestResultWrite ErrorCode = 609

	// Exchange errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidTimespan       ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704
	ErrCodeUnsupportedOperation  ErrorCode = 705

	// Callback errors (800-899)
	ErrCodeUserCallbackError ErrorCode = 800
)
