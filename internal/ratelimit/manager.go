package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Connect parses a redis URL, applies overrides and pings the server
func Connect(ctx context.Context, redisURL, password string, db int) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	if db != 0 {
		opt.DB = db
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Manager provides Redis-backed fixed-window rate limiting
type Manager struct {
	redis  *redis.Client
	prefix string
	now    func() time.Time
}

// Decision is the result of one limiter check
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	// ResetSec is the number of seconds until the current window closes
	ResetSec int
}

// NewManager wraps an existing client
func NewManager(client *redis.Client) *Manager {
	return &Manager{redis: client, prefix: "rl", now: func() time.Time { return time.Now().UTC() }}
}

func (m *Manager) Close() error { return m.redis.Close() }

// Allow counts one hit for key in the current window and reports whether
// it stays within limit. The counter key expires with its window.
func (m *Manager) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (Decision, error) {
	if window < time.Second {
		window = time.Second
	}
	now := m.now()
	size := int64(window / time.Second)
	bucket := now.Unix() / size
	rk := fmt.Sprintf("%s:%s:%s:%d", m.prefix, scope, key, bucket)

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate check %s: %w", scope, err)
	}

	count := int(incr.Val())
	d := Decision{
		Allowed:  count <= limit,
		Count:    count,
		Limit:    limit,
		ResetSec: int(size - now.Unix()%size),
	}
	if d.Allowed {
		d.Remaining = limit - count
	}
	return d, nil
}
