package logger

import "go.uber.org/zap"

// Event names the structured events the trading core emits. External tooling
// keys off these names; do not rename them.
type Event string

const (
	EventDataFetchSuccess         Event = "data_fetch_success"
	EventDataFetchError           Event = "data_fetch_error"
	EventDataFetchCompleteFailure Event = "data_fetch_complete_failure"
	EventPaginationAttempt        Event = "pagination_attempt"
	EventPaginationSuccess        Event = "pagination_success"
	EventInsufficientData         Event = "insufficient_data"
	EventTimeframeFallback        Event = "timeframe_fallback"
	EventRequestSizeReduction     Event = "request_size_reduction"
	EventAPICallFailed            Event = "api_call_failed"
	EventOrderAttempt             Event = "order_attempt"
	EventOrderSubmitted           Event = "order_submitted"
	EventOrderSubmissionFailed    Event = "order_submission_failed"
	EventStrategyAnalysis         Event = "strategy_analysis"
	EventConnectionSuccess        Event = "connection_success"
	EventConnectionFailure        Event = "connection_failure"
	EventDiagnosticTestStart      Event = "diagnostic_test_start"
	EventDiagnosticTestResults    Event = "diagnostic_test_results"
)

// Event emits a structured event at info level with the given payload.
func (l *Logger) Event(event Event, data map[string]any) {
	l.Info(string(event), zap.String("event_type", string(event)), zap.Any("data", data))
}

// WarnEvent emits a structured event at warn level with the given payload.
func (l *Logger) WarnEvent(event Event, data map[string]any) {
	l.Warn(string(event), zap.String("event_type", string(event)), zap.Any("data", data))
}

// ErrorEvent emits a structured event at error level with the given payload.
func (l *Logger) ErrorEvent(event Event, data map[string]any) {
	l.Error(string(event), zap.String("event_type", string(event)), zap.Any("data", data))
}
