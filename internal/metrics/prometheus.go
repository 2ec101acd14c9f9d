package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incidentwatch"

// Prometheus implements Metrics on its own registry
type Prometheus struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	votes         *prometheus.CounterVec
	moderations   *prometheus.CounterVec
	moderatedRows *prometheus.CounterVec
	events        *prometheus.CounterVec
	feedRequests  *prometheus.CounterVec
	feedDuration  prometheus.Histogram
	dbConns       prometheus.Gauge
	dbQueries     *prometheus.CounterVec
}

// NewPrometheus registers all collectors on a fresh registry
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "endpoint", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "votes_total",
			Help:      "Vote submissions by confirmation type and outcome (ok or error kind).",
		}, []string{"type", "outcome"}),
		moderations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "moderations_total",
			Help:      "Moderation requests by action and outcome.",
		}, []string{"action", "outcome"}),
		moderatedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "moderated_reports_total",
			Help:      "Reports changed by moderation, by action.",
		}, []string{"action"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Broadcast triggers by event type and publish status.",
		}, []string{"type", "status"}),
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "requests_total",
			Help:      "External feed queries by status.",
		}, []string{"status"}),
		feedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "request_duration_seconds",
			Help:      "External feed query latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		dbConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_active",
			Help:      "Acquired connections in the database pool.",
		}),
		dbQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Database operations by kind and status.",
		}, []string{"operation", "status"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpRequests, p.httpDuration,
		p.votes, p.moderations, p.moderatedRows,
		p.events, p.feedRequests, p.feedDuration,
		p.dbConns, p.dbQueries,
	)
	return p
}

func (p *Prometheus) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	p.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (p *Prometheus) RecordVote(confirmationType, outcome string) {
	p.votes.WithLabelValues(confirmationType, outcome).Inc()
}

func (p *Prometheus) RecordModeration(action, outcome string, reports int) {
	p.moderations.WithLabelValues(action, outcome).Inc()
	if reports > 0 {
		p.moderatedRows.WithLabelValues(action).Add(float64(reports))
	}
}

func (p *Prometheus) RecordEventPublished(eventType, status string) {
	p.events.WithLabelValues(eventType, status).Inc()
}

func (p *Prometheus) RecordFeedRequest(status string, duration time.Duration) {
	p.feedRequests.WithLabelValues(status).Inc()
	p.feedDuration.Observe(duration.Seconds())
}

func (p *Prometheus) SetDBConnectionsActive(count float64) {
	p.dbConns.Set(count)
}

func (p *Prometheus) RecordDBQuery(operation, status string) {
	p.dbQueries.WithLabelValues(operation, status).Inc()
}

// Handler serves the registry in the Prometheus text format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
