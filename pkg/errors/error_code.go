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
	ErrCodeInsufficientData     ErrorCode = 103
	ErrCodeInvalidType          ErrorCode = 104
	ErrCodeInvalidPeriod        ErrorCode = 105
	ErrCodeMissingParameter     ErrorCode = 106
	ErrCodeInvalidTimeframe     ErrorCode = 107

	// Indicator errors (200-299)
	ErrCodeIndicatorCalculation ErrorCode = 200
	ErrCodeUnknownMAType        ErrorCode = 201

	// Optimizer errors (300-399)
	ErrCodeNoValidConfiguration ErrorCode = 300

	// Trading errors (400-499)
	ErrCodeOrderRejected    ErrorCode = 400
	ErrCodeOrderTimeout     ErrorCode = 401
	ErrCodePositionNotFound ErrorCode = 402
	ErrCodeConnectivity     ErrorCode = 403

	// Market data errors (500-599)
	ErrCodeDataFetchFailed ErrorCode = 500
	ErrCodeDataParseFailed ErrorCode = 501
	ErrCodeInvalidProvider ErrorCode = 502

	// Journal errors (600-699)
	ErrCodeJournalWriteFailed ErrorCode = 600
	ErrCodeJournalQueryFailed ErrorCode = 601
)
