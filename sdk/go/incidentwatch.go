package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL     string
	AdminSecret string
	// VoterID is sent with every vote when set
	VoterID string
	HTTP    *http.Client
}

func New(baseURL, voterID string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), VoterID: voterID, HTTP: http.DefaultClient}
}

// APIError is a non-2xx response from the server
type APIError struct {
	Status     int      `json:"-"`
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	DistanceKm *float64 `json:"distance_km"`
	Missing    []string `json:"missing"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("incidentwatch: %d %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("incidentwatch: %d: %s", e.Status, e.Message)
}

type Report struct {
	ID                string     `json:"id"`
	IncidentType      string     `json:"incident_type"`
	AreaName          string     `json:"area_name"`
	AreaSlug          string     `json:"area_slug"`
	State             string     `json:"state"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	Status            string     `json:"status"`
	ModerationStatus  string     `json:"moderation_status"`
	PhotoURL          string     `json:"photo_url,omitempty"`
	ConfirmationCount int        `json:"confirmation_count"`
	DenialCount       int        `json:"denial_count"`
	CreatedAt         time.Time  `json:"created_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

type NewReport struct {
	IncidentType string  `json:"incident_type"`
	AreaName     string  `json:"area_name"`
	State        string  `json:"state,omitempty"`
	Landmark     string  `json:"landmark,omitempty"`
	Description  string  `json:"description,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type VoteResult struct {
	Report     Report  `json:"report"`
	DistanceKm float64 `json:"distance_km"`
}

type RouteResult struct {
	Zone    string  `json:"zone"`
	Score   float64 `json:"score"`
	Primary bool    `json:"primary"`
}

type RiskWindow struct {
	Level        string `json:"level"`
	Known        bool   `json:"known"`
	LookbackDays int    `json:"lookback_days"`
	MaxResults   int    `json:"max_results"`
	Extended     bool   `json:"extended"`
}

type BulkOutcome struct {
	Action  string   `json:"action"`
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, admin bool) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.VoterID != "" {
		req.Header.Set("X-Voter-ID", c.VoterID)
	}
	if admin {
		req.Header.Set("X-Admin-Secret", c.AdminSecret)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) CreateReport(ctx context.Context, in NewReport) (*Report, error) {
	var out Report
	if err := c.do(ctx, http.MethodPost, "/v1/reports", in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Report(ctx context.Context, id string) (*Report, error) {
	var out Report
	if err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(id), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote casts a confirm, deny or ended vote from the given position
func (c *Client) Vote(ctx context.Context, reportID, confirmationType string, lat, lng float64) (*VoteResult, error) {
	in := map[string]interface{}{
		"latitude":          lat,
		"longitude":         lng,
		"confirmation_type": confirmationType,
	}
	var out VoteResult
	if err := c.do(ctx, http.MethodPost, "/v1/reports/"+url.PathEscape(reportID)+"/confirmations", in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RouteRelevance(ctx context.Context, location string, states []string) (*RouteResult, error) {
	q := url.Values{}
	q.Set("location", location)
	q.Set("states", strings.Join(states, ","))
	var out struct {
		Result RouteResult `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/relevance/route?"+q.Encode(), nil, &out, false); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

func (c *Client) RiskWindow(ctx context.Context, level string) (*RiskWindow, error) {
	var out RiskWindow
	if err := c.do(ctx, http.MethodGet, "/v1/risk-window?level="+url.QueryEscape(level), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Moderate(ctx context.Context, reportID, action, reason string) (*Report, error) {
	in := map[string]string{"action": action, "reason": reason}
	var out Report
	if err := c.do(ctx, http.MethodPost, "/v1/admin/reports/"+url.PathEscape(reportID)+"/moderate", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ModerateBulk(ctx context.Context, ids []string, action, reason string) (*BulkOutcome, error) {
	in := map[string]interface{}{"report_ids": ids, "action": action, "reason": reason}
	var out BulkOutcome
	if err := c.do(ctx, http.MethodPost, "/v1/admin/reports/moderate", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
