package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeInvalidTimeframe     ErrorCode = 104

	// Market data errors (200-299)
	ErrCodeNoData            ErrorCode = 200
	ErrCodeMissingTimestamp  ErrorCode = 201
	ErrCodeMissingColumn     ErrorCode = 202
	ErrCodeInsufficientBars  ErrorCode = 203
	ErrCodeFetchFailed       ErrorCode = 204
	ErrCodeSourceUnavailable ErrorCode = 205

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 400
	ErrCodeStrategyRuntimeError ErrorCode = 401
	ErrCodeUnsupportedStrategy  ErrorCode = 402

	// Trading errors (500-599)
	ErrCodeOrderFailed      ErrorCode = 500
	ErrCodePositionNotFound ErrorCode = 501
	ErrCodeInvalidQuantity  ErrorCode = 502
	ErrCodeInvalidRisk      ErrorCode = 503
	ErrCodeJournalFailed    ErrorCode = 504

	// Broker errors (700-799)
	ErrCodeMissingCredentials ErrorCode = 700
	ErrCodeBrokerCallFailed   ErrorCode = 701
	ErrCodeRetriesExhausted   ErrorCode = 702
)
