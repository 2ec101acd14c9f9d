package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Ensure NoOpMetrics methods do not panic and global functions delegate without error
func TestNoOpMetricsAndDelegates(t *testing.T) {
	m := &NoOpMetrics{}
	m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	m.RecordVote("confirm", "ok")
	m.RecordModeration("remove", "ok", 3)
	m.RecordEventPublished("report.created", "ok")
	m.RecordFeedRequest("ok", time.Millisecond)
	m.SetDBConnectionsActive(1)
	m.RecordDBQuery("exec", "ok")

	Set(nil)
	RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	RecordVote("deny", "too_far")
	RecordModeration("approve", "ok", 1)
	RecordEventPublished("report.ended", "error")
	RecordFeedRequest("error", time.Millisecond)
	SetDBConnectionsActive(2)
	RecordDBQuery("query", "ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from no-op handler, got %d", rec.Code)
	}
}

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()
	p.RecordVote("confirm", "ok")
	p.RecordVote("confirm", "ok")
	p.RecordVote("confirm", "too_far")
	p.RecordModeration("remove", "ok", 4)
	p.RecordModeration("remove", "empty_selection", 0)
	p.RecordDBQuery("exec", "success")
	p.SetDBConnectionsActive(7)

	if got := testutil.ToFloat64(p.votes.WithLabelValues("confirm", "ok")); got != 2 {
		t.Errorf("Expected 2 ok votes, got %v", got)
	}
	if got := testutil.ToFloat64(p.votes.WithLabelValues("confirm", "too_far")); got != 1 {
		t.Errorf("Expected 1 rejected vote, got %v", got)
	}
	if got := testutil.ToFloat64(p.moderatedRows.WithLabelValues("remove")); got != 4 {
		t.Errorf("Expected 4 moderated reports, got %v", got)
	}
	if got := testutil.ToFloat64(p.dbConns); got != 7 {
		t.Errorf("Expected gauge 7, got %v", got)
	}
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.RecordHTTPRequest("POST", "/v1/reports/{id}/confirmations", 201, 20*time.Millisecond)
	p.RecordEventPublished("report.created", "ok")
	p.RecordFeedRequest("ok", time.Second)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`incidentwatch_http_requests_total{code="201",endpoint="/v1/reports/{id}/confirmations",method="POST"} 1`,
		`incidentwatch_events_published_total{status="ok",type="report.created"} 1`,
		`incidentwatch_feed_requests_total{status="ok"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}

func TestInit_SwapsGlobal(t *testing.T) {
	Init()
	defer Set(nil)
	if _, ok := globalMetrics.(*Prometheus); !ok {
		t.Fatalf("expected prometheus metrics after Init, got %T", globalMetrics)
	}
	RecordVote("ended", "ok")
}
