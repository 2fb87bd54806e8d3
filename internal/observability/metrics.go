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

// Metrics stores Prometheus collectors used by API, orchestrator, and worker
// flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	batchesTotal             *prometheus.CounterVec
	batchDuration            *prometheus.HistogramVec
	itemsTotal               *prometheus.CounterVec
	trackingPointsTotal      prometheus.Counter
	historyEntriesTotal      prometheus.Counter
	notificationsSentTotal   prometheus.Counter
	notificationsFailedTotal *prometheus.CounterVec
	notificationDuration     prometheus.Histogram
	workerInflight           prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "warehouse",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "status_update_batches_total",
				Help:      "Total number of executed status-update batches by target type.",
			},
			[]string{"target_type"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "warehouse",
				Name:      "status_update_batch_duration_seconds",
				Help:      "Batch execution duration in seconds by target type.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"target_type"},
		),
		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "status_update_items_total",
				Help:      "Total number of processed batch items by target type and outcome.",
			},
			[]string{"target_type", "outcome"},
		),
		trackingPointsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "tracking_points_created_total",
				Help:      "Total number of tracking points derived from status updates.",
			},
		),
		historyEntriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "status_history_entries_total",
				Help:      "Total number of status history entries written.",
			},
		),
		notificationsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "customer_notifications_sent_total",
				Help:      "Total number of customer notifications delivered successfully.",
			},
		),
		notificationsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warehouse",
				Name:      "customer_notifications_failed_total",
				Help:      "Total number of customer notifications that ended in failed state.",
			},
			[]string{"reason"},
		),
		notificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "warehouse",
				Name:      "customer_notification_duration_seconds",
				Help:      "End-to-end webhook delivery duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "warehouse",
				Name:      "notification_worker_inflight",
				Help:      "Current number of in-flight notification deliveries.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.batchesTotal,
		m.batchDuration,
		m.itemsTotal,
		m.trackingPointsTotal,
		m.historyEntriesTotal,
		m.notificationsSentTotal,
		m.notificationsFailedTotal,
		m.notificationDuration,
		m.workerInflight,
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

// ObserveBatch records one completed status-update batch.
func (m *Metrics) ObserveBatch(targetType string, successful int, failed int, duration time.Duration) {
	if m == nil {
		return
	}

	label := normalizeTargetType(targetType)
	m.batchesTotal.WithLabelValues(label).Inc()

	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.batchDuration.WithLabelValues(label).Observe(seconds)

	if successful > 0 {
		m.itemsTotal.WithLabelValues(label, "success").Add(float64(successful))
	}
	if failed > 0 {
		m.itemsTotal.WithLabelValues(label, "failure").Add(float64(failed))
	}
}

func (m *Metrics) AddTrackingPoints(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.trackingPointsTotal.Add(float64(count))
}

func (m *Metrics) AddHistoryEntries(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.historyEntriesTotal.Add(float64(count))
}

func (m *Metrics) IncNotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSentTotal.Inc()
}

func (m *Metrics) IncNotificationFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.notificationsFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) ObserveNotificationDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.notificationDuration.Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
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
	return c.Response().StatusCode()
}

func normalizeTargetType(targetType string) string {
	label := strings.TrimSpace(strings.ToLower(targetType))
	if label == "" {
		return "unknown"
	}
	return label
}
