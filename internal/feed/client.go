// Package feed queries an open news/event search API for incidents in an
// area, sizing each query by the area's risk level.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/metrics"
	"github.com/rajasatyajit/incidentwatch/internal/relevance"
	"github.com/rajasatyajit/incidentwatch/internal/riskwindow"
	"github.com/rajasatyajit/incidentwatch/pkg/utils"
	"golang.org/x/time/rate"
)

// seenLayout is the article timestamp format used by the search API
const seenLayout = "20060102T150405Z"

// incidentTerms narrow the search to security news
var incidentTerms = []string{"attack", "kidnap", "kidnapping", "robbery", "gunmen", "bandits", "explosion", "clash"}

// Article is one search hit that survived relevance filtering
type Article struct {
	Key           string    `json:"key"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Domain        string    `json:"domain"`
	Language      string    `json:"language"`
	SourceCountry string    `json:"source_country"`
	SeenAt        time.Time `json:"seen_at"`
	Area          string    `json:"area"`
	Score         float64   `json:"score"`
}

type apiArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

type apiResponse struct {
	Articles []apiArticle `json:"articles"`
}

// Config configures a Client
type Config struct {
	BaseURL   string
	Country   string
	UserAgent string
	// RateLimit is the number of outbound requests per second
	RateLimit float64
	Timeout   time.Duration
}

// Client searches the feed for one area at a time
type Client struct {
	cfg        Config
	http       *http.Client
	limiter    *rate.Limiter
	policy     *riskwindow.Policy
	classifier *relevance.Classifier
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPolicy replaces the default risk window table
func WithPolicy(p *riskwindow.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithClassifier replaces the default relevance classifier
func WithClassifier(rc *relevance.Classifier) Option {
	return func(c *Client) { c.classifier = rc }
}

// NewClient creates a feed client
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "incidentwatch/1.0"
	}
	c := &Client{
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		policy:     riskwindow.Default(),
		classifier: relevance.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query builds the search parameters for an area at a risk level
func (c *Client) Query(area relevance.Area, riskLevel string) url.Values {
	w := c.policy.WindowFor(riskLevel)

	terms := "(" + strings.Join(incidentTerms, " OR ") + ")"
	q := fmt.Sprintf("%q %s", strings.TrimSpace(area.Name), terms)
	if c.cfg.Country != "" {
		q += " sourcecountry:" + strings.ToLower(strings.ReplaceAll(c.cfg.Country, " ", ""))
	}

	v := url.Values{}
	v.Set("query", q)
	v.Set("mode", "artlist")
	v.Set("format", "json")
	v.Set("sort", "datedesc")
	v.Set("maxrecords", strconv.Itoa(w.MaxResults))
	v.Set("timespan", w.Timespan())
	return v
}

// Search fetches recent incident articles for area, keeping only those
// that mention the area or its state and fall inside the risk window
func (c *Client) Search(ctx context.Context, area relevance.Area, riskLevel string) ([]Article, error) {
	start := time.Now()
	arts, err := c.search(ctx, area, riskLevel)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordFeedRequest(status, time.Since(start))
	return arts, err
}

func (c *Client) search(ctx context.Context, area relevance.Area, riskLevel string) ([]Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.FeedError{Area: area.Name, Stage: "rate_limit", Err: err}
	}

	u := c.cfg.BaseURL + "?" + c.Query(area, riskLevel).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.FeedError{Area: area.Name, Stage: "request", Err: err}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.FeedError{Area: area.Name, Stage: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			err = fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
		}
		return nil, apperrors.FeedError{Area: area.Name, Stage: "fetch", Err: err}
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.FeedError{Area: area.Name, Stage: "decode", Err: err}
	}

	since := c.policy.WindowFor(riskLevel).Since(c.now())
	out := make([]Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		art, ok := c.filter(a, area, since)
		if ok {
			out = append(out, art)
		}
	}
	return out, nil
}

// filter converts an api article, dropping it when it is outside the
// window or does not mention the area or its state
func (c *Client) filter(a apiArticle, area relevance.Area, since time.Time) (Article, bool) {
	if a.URL == "" {
		return Article{}, false
	}
	seen, err := time.Parse(seenLayout, a.SeenDate)
	if err == nil && seen.Before(since) {
		return Article{}, false
	}

	m := c.classifier.ClassifyArea(a.Title, area)
	score := m.Score
	if !m.InArea {
		if !m.SameState {
			return Article{}, false
		}
		score = relevance.ZoneRouteState.Score()
	}

	return Article{
		Key:           utils.HashKey(a.URL),
		URL:           a.URL,
		Title:         strings.TrimSpace(a.Title),
		Domain:        a.Domain,
		Language:      a.Language,
		SourceCountry: a.SourceCountry,
		SeenAt:        seen,
		Area:          area.Slug,
		Score:         score,
	}, true
}
