package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rajasatyajit/incidentwatch/internal/logger"
)

// Poller rescans its targets on an interval and keeps the latest results
// per area in memory
type Poller struct {
	scanner    *Scanner
	targets    []Target
	interval   time.Duration
	retryDelay time.Duration

	mu      sync.RWMutex
	running bool
	latest  map[string][]Article
	lastRun time.Time
}

// NewPoller creates a poller
func NewPoller(s *Scanner, targets []Target, interval, retryDelay time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if retryDelay <= 0 {
		retryDelay = time.Minute
	}
	return &Poller{
		scanner:    s,
		targets:    targets,
		interval:   interval,
		retryDelay: retryDelay,
		latest:     make(map[string][]Article),
	}
}

// Targets returns the watched areas
func (p *Poller) Targets() []Target {
	return p.targets
}

// Run polls until ctx is cancelled
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	logger.Info("Starting feed poller", "areas", len(p.targets), "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.RunOnce(ctx); err != nil {
		logger.Error("Initial feed scan failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Feed poller stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				logger.Error("Feed scan failed", "error", err)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(p.retryDelay):
				}
			}
		}
	}
}

// RunOnce performs a single scan and replaces the stored results per area.
// Each area keeps its own hits, including articles other areas also found.
// After a partial failure the failed areas keep their previous results.
func (p *Poller) RunOnce(ctx context.Context) error {
	start := time.Now()
	byArea, err := p.scanner.ScanAreas(ctx, p.targets)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	total := 0
	p.mu.Lock()
	for _, t := range p.targets {
		if list, ok := byArea[t.Area.Slug]; ok {
			p.latest[t.Area.Slug] = list
			total += len(list)
		}
	}
	p.lastRun = time.Now().UTC()
	p.mu.Unlock()

	logger.Info("Feed scan completed",
		"areas", len(p.targets),
		"articles", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// Latest returns the most recent articles for an area slug
func (p *Poller) Latest(slug string) ([]Article, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := p.latest[slug]
	out := make([]Article, len(list))
	copy(out, list)
	return out, p.lastRun
}

// All returns the latest articles of every watched area merged into one
// list, newest first
func (p *Poller) All() []Article {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Merge(p.latest)
}
