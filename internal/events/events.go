// Package events carries report lifecycle transitions to the broadcast layer.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/metrics"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Type names a broadcast trigger
type Type string

const (
	ReportCreated Type = "report.created"
	ReportEnded   Type = "report.ended"
	ReportRemoved Type = "report.removed"
)

// Event is one broadcast trigger
type Event struct {
	Type         Type                `json:"type"`
	ReportID     string              `json:"report_id"`
	AreaSlug     string              `json:"area_slug"`
	State        string              `json:"state"`
	IncidentType models.IncidentType `json:"incident_type"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// FromReport builds a trigger for a report transition
func FromReport(t Type, r models.Report, at time.Time) Event {
	return Event{
		Type:         t,
		ReportID:     r.ID,
		AreaSlug:     r.AreaSlug,
		State:        r.State,
		IncidentType: r.IncidentType,
		OccurredAt:   at,
	}
}

// Publisher hands triggers to the notification layer
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e Event) error { return nil }

// RedisPublisher pushes JSON events onto a capped Redis list. Consumers pop
// from the tail, so the list is oldest-last.
type RedisPublisher struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisPublisher creates a publisher writing to key, keeping at most maxLen entries
func NewRedisPublisher(client *redis.Client, key string, maxLen int64) *RedisPublisher {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisPublisher{client: client, key: key, maxLen: maxLen}
}

// Publish LPUSHes the event and trims the list in one transaction
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, p.key, payload)
	pipe.LTrim(ctx, p.key, 0, p.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordEventPublished(string(e.Type), "error")
		return fmt.Errorf("publish %s for %s: %w", e.Type, e.ReportID, err)
	}
	metrics.RecordEventPublished(string(e.Type), "ok")
	return nil
}

// Recent returns up to n of the newest events
func (p *RedisPublisher) Recent(ctx context.Context, n int64) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := p.client.LRange(ctx, p.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	out := make([]Event, 0, len(raw))
	for _, s := range raw {
		var e Event
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			logger.Warn("Skipping malformed event", "key", p.key, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// PublishAll publishes events concurrently, at most limit in flight, and
// returns the first failure after all attempts finish
func PublishAll(ctx context.Context, p Publisher, evts []Event, limit int) error {
	if len(evts) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, e := range evts {
		e := e
		g.Go(func() error {
			return p.Publish(ctx, e)
		})
	}
	return g.Wait()
}
