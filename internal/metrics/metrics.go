package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordVote(confirmationType, outcome string)
	RecordModeration(action, outcome string, reports int)
	RecordEventPublished(eventType, status string)
	RecordFeedRequest(status string, duration time.Duration)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordVote(confirmationType, outcome string)             {}
func (m *NoOpMetrics) RecordModeration(action, outcome string, reports int)    {}
func (m *NoOpMetrics) RecordEventPublished(eventType, status string)           {}
func (m *NoOpMetrics) RecordFeedRequest(status string, duration time.Duration) {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                    {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                  {}
func (m *NoOpMetrics) Handler() http.Handler                                   { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init swaps the global instance for a Prometheus-backed one
func Init() {
	globalMetrics = NewPrometheus()
}

// Set replaces the global instance
func Set(m Metrics) {
	if m == nil {
		m = &NoOpMetrics{}
	}
	globalMetrics = m
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordVote records the outcome of a vote submission
func RecordVote(confirmationType, outcome string) {
	globalMetrics.RecordVote(confirmationType, outcome)
}

// RecordModeration records a single or bulk moderation decision
func RecordModeration(action, outcome string, reports int) {
	globalMetrics.RecordModeration(action, outcome, reports)
}

// RecordEventPublished records a broadcast trigger publish attempt
func RecordEventPublished(eventType, status string) {
	globalMetrics.RecordEventPublished(eventType, status)
}

// RecordFeedRequest records an external feed query
func RecordFeedRequest(status string, duration time.Duration) {
	globalMetrics.RecordFeedRequest(status, duration)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
