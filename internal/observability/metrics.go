package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and scheduler flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	dialsDispatchedTotal  *prometheus.CounterVec
	dialOutcomesTotal     *prometheus.CounterVec
	cycleSkipsTotal       *prometheus.CounterVec
	prospectsDroppedTotal *prometheus.CounterVec
	intakeTotal           *prometheus.CounterVec
	followupTextsTotal    *prometheus.CounterVec
	cycleDuration         prometheus.Histogram
	dispatchDuration      prometheus.Histogram
	pendingInflight       prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "redial_orchestrator",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dialsDispatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "dials_dispatched_total",
				Help:      "Total number of outbound dials handed to the voice provider.",
			},
			[]string{"list"},
		),
		dialOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "dial_outcomes_total",
				Help:      "Total number of settled call outcomes by outcome code and class.",
			},
			[]string{"outcome", "class"},
		),
		cycleSkipsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "cycle_skips_total",
				Help:      "Records skipped during scheduler cycles grouped by reason.",
			},
			[]string{"reason"},
		),
		prospectsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "prospects_dropped_total",
				Help:      "Prospects removed from circulation grouped by reason.",
			},
			[]string{"reason"},
		),
		intakeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "intake_total",
				Help:      "Intake messages processed grouped by result.",
			},
			[]string{"result"},
		),
		followupTextsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redial_orchestrator",
				Name:      "followup_texts_total",
				Help:      "Follow-up text attempts grouped by result.",
			},
			[]string{"result"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "redial_orchestrator",
				Name:      "cycle_duration_seconds",
				Help:      "Scheduler cycle duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		dispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "redial_orchestrator",
				Name:      "dispatch_duration_seconds",
				Help:      "Voice provider dispatch duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		pendingInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "redial_orchestrator",
				Name:      "pending_inflight",
				Help:      "Current number of dispatched calls awaiting a completion callback.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dialsDispatchedTotal,
		m.dialOutcomesTotal,
		m.cycleSkipsTotal,
		m.prospectsDroppedTotal,
		m.intakeTotal,
		m.followupTextsTotal,
		m.cycleDuration,
		m.dispatchDuration,
		m.pendingInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDialDispatched(listID string) {
	if m == nil {
		return
	}
	m.dialsDispatchedTotal.WithLabelValues(normalizeLabel(listID)).Inc()
}

func (m *Metrics) IncDialOutcome(outcome string, class string) {
	if m == nil {
		return
	}
	m.dialOutcomesTotal.WithLabelValues(normalizeLabel(outcome), normalizeLabel(class)).Inc()
}

func (m *Metrics) IncCycleSkip(reason string) {
	if m == nil {
		return
	}
	m.cycleSkipsTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncProspectDropped(reason string) {
	if m == nil {
		return
	}
	m.prospectsDroppedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncIntake(result string) {
	if m == nil {
		return
	}
	m.intakeTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncFollowupText(result string) {
	if m == nil {
		return
	}
	m.followupTextsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(nonNegativeSeconds(duration))
}

func (m *Metrics) ObserveDispatchDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.Observe(nonNegativeSeconds(duration))
}

func (m *Metrics) SetPendingInflight(count int) {
	if m == nil {
		return
	}
	m.pendingInflight.Set(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func nonNegativeSeconds(duration time.Duration) float64 {
	seconds := duration.Seconds()
	if seconds < 0 {
		return 0
	}
	return seconds
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
