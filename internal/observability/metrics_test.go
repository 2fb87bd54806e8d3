package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsBatchCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.ObserveBatch("Package", 3, 1, 150*time.Millisecond)
	metrics.AddTrackingPoints(3)
	metrics.AddHistoryEntries(4)

	if got := testutil.ToFloat64(metrics.batchesTotal.WithLabelValues("package")); got != 1 {
		t.Fatalf("status_update_batches_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.itemsTotal.WithLabelValues("package", "success")); got != 3 {
		t.Fatalf("items success = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.itemsTotal.WithLabelValues("package", "failure")); got != 1 {
		t.Fatalf("items failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.trackingPointsTotal); got != 3 {
		t.Fatalf("tracking_points_created_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.historyEntriesTotal); got != 4 {
		t.Fatalf("status_history_entries_total = %v, want 4", got)
	}
}

func TestMetricsNotificationCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncNotificationSent()
	metrics.IncNotificationFailed("Webhook_Timeout")
	metrics.ObserveNotificationDuration(80 * time.Millisecond)
	metrics.IncWorkerInFlight()
	metrics.DecWorkerInFlight()

	if got := testutil.ToFloat64(metrics.notificationsSentTotal); got != 1 {
		t.Fatalf("customer_notifications_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsFailedTotal.WithLabelValues("webhook_timeout")); got != 1 {
		t.Fatalf("customer_notifications_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.workerInflight); got != 0 {
		t.Fatalf("notification_worker_inflight = %v, want 0", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
