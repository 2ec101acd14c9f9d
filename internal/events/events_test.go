package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	redis "github.com/redis/go-redis/v9"
)

func newTestPublisher(t *testing.T, maxLen int64) (*RedisPublisher, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisPublisher(client, "test:events", maxLen), s
}

func TestFromReport(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := models.Report{ID: "r1", AreaSlug: "ikeja", State: "lagos", IncidentType: models.IncidentFire}
	e := FromReport(ReportEnded, r, at)
	expected := Event{Type: ReportEnded, ReportID: "r1", AreaSlug: "ikeja", State: "lagos", IncidentType: models.IncidentFire, OccurredAt: at}
	if e != expected {
		t.Errorf("Expected %+v, got %+v", expected, e)
	}
}

func TestRedisPublisher_PublishAndTrim(t *testing.T) {
	p, s := newTestPublisher(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := p.Publish(ctx, Event{Type: ReportCreated, ReportID: fmt.Sprintf("r%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List("test:events")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected list capped at 3, got %d", len(list))
	}

	recent, err := p.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ReportID != "r4" || recent[1].ReportID != "r3" {
		t.Errorf("expected newest first, got %+v", recent)
	}
}

func TestRedisPublisher_SkipsMalformed(t *testing.T) {
	p, s := newTestPublisher(t, 10)
	s.Lpush("test:events", "{not json")
	p.Publish(context.Background(), Event{Type: ReportRemoved, ReportID: "r1"})

	recent, err := p.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Type != ReportRemoved {
		t.Errorf("expected only the valid event, got %+v", recent)
	}
	if got, _ := p.Recent(context.Background(), 0); got != nil {
		t.Error("expected nil for n=0")
	}
}

func TestRedisPublisher_Unavailable(t *testing.T) {
	p, s := newTestPublisher(t, 10)
	s.Close()
	if err := p.Publish(context.Background(), Event{Type: ReportCreated, ReportID: "r1"}); err == nil {
		t.Error("expected error when redis is down")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	seen   []string
	failOn string
}

func (r *recordingPublisher) Publish(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, e.ReportID)
	if e.ReportID == r.failOn {
		return errors.New("publish failed")
	}
	return nil
}

func TestPublishAll(t *testing.T) {
	var evts []Event
	for i := 0; i < 10; i++ {
		evts = append(evts, Event{Type: ReportRemoved, ReportID: fmt.Sprintf("r%d", i)})
	}

	rec := &recordingPublisher{failOn: "r3"}
	err := PublishAll(context.Background(), rec, evts, 3)
	if err == nil {
		t.Error("expected the failure to surface")
	}
	if len(rec.seen) != 10 {
		t.Errorf("expected every event attempted, got %d", len(rec.seen))
	}

	if err := PublishAll(context.Background(), NopPublisher{}, nil, 0); err != nil {
		t.Errorf("expected nil for no events, got %v", err)
	}
}
