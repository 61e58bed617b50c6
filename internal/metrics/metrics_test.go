package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/storefront/internal/basket"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/event/dispatch"
	"github.com/dshills/storefront/internal/shopapi"
)

var (
	_ event.Recorder   = (*Metrics)(nil)
	_ shopapi.Observer = (*Metrics)(nil)
)

func TestMetrics_EventEmitted(t *testing.T) {
	m := New()

	m.EventEmitted("basket-changed", 2)
	m.EventEmitted("basket-changed", 1)
	m.EventEmitted("order:open", 0)

	if got := testutil.ToFloat64(m.eventsEmitted.WithLabelValues("basket-changed")); got != 2 {
		t.Errorf("events_emitted{basket-changed} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.eventsUnrouted.WithLabelValues("order:open")); got != 1 {
		t.Errorf("events_unrouted{order:open} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.eventsUnrouted); got != 1 {
		t.Errorf("unrouted series = %d, want 1", got)
	}
}

func TestMetrics_HandlerCompleted(t *testing.T) {
	m := New()

	results := []dispatch.Result{
		{Success: true, Duration: time.Millisecond},
		{Error: errors.New("bad")},
		{Panicked: true, PanicValue: "boom"},
		{Skipped: true},
	}
	for _, r := range results {
		m.HandlerCompleted("preview-changed", r)
	}

	for _, outcome := range []string{"ok", "error", "panic", "skipped"} {
		if got := testutil.ToFloat64(m.handlerRuns.WithLabelValues("preview-changed", outcome)); got != 1 {
			t.Errorf("handler_runs{%s} = %v, want 1", outcome, got)
		}
	}
}

func TestMetrics_ObserveBasketAndOrders(t *testing.T) {
	m := New()

	m.ObserveBasket(basket.Basket{Items: []string{"a", "b"}, Total: 1500})
	if got := testutil.ToFloat64(m.basketItems); got != 2 {
		t.Errorf("basket items = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.basketTotal); got != 1500 {
		t.Errorf("basket total = %v, want 1500", got)
	}

	m.ObserveBasket(basket.Basket{})
	if got := testutil.ToFloat64(m.basketItems); got != 0 {
		t.Errorf("basket items after clear = %v, want 0", got)
	}

	m.OrderSubmitted(OrderSucceeded)
	m.OrderSubmitted(OrderFailed)
	m.OrderSubmitted(OrderFailed)
	if got := testutil.ToFloat64(m.orders.WithLabelValues(OrderFailed)); got != 2 {
		t.Errorf("orders{failed} = %v, want 2", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveAPI("fetch_catalog", "ok", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`storefront_api_requests_total{operation="fetch_catalog",outcome="ok"} 1`,
		"storefront_api_request_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
