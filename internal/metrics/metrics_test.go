package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordUpdate("message")
	m.RecordUpdate("message")
	m.RecordUpdate("callback_query")
	m.RecordOutcome("admitted")

	if got := testutil.ToFloat64(m.updates.WithLabelValues("message")); got != 2 {
		t.Errorf("updates{message} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.updates.WithLabelValues("callback_query")); got != 1 {
		t.Errorf("updates{callback_query} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("admitted")); got != 1 {
		t.Errorf("outcomes{admitted} = %v, want 1", got)
	}
}

func TestObserveRequest(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveRequest("getChatMember", nil, 20*time.Millisecond)
	m.ObserveRequest("getChatMember", errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("getChatMember", "ok")); got != 1 {
		t.Errorf("ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("getChatMember", "error")); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.apiDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordOutcome("prompted")
	m.ObserveWebhook(5 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`joingate_outcomes_total{outcome="prompted"} 1`,
		"joingate_webhook_duration_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
