package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rajasatyajit/incidentwatch/internal/feed"
	"github.com/rajasatyajit/incidentwatch/internal/relevance"
	"github.com/rajasatyajit/incidentwatch/internal/riskwindow"
)

// maxSummaryLocations bounds a route summary request
const maxSummaryLocations = 500

type routeSummaryRequest struct {
	States    []string `json:"states"`
	Locations []string `json:"locations"`
}

type classifiedLocation struct {
	Location string `json:"location"`
	relevance.Result
}

// routeRelevanceHandler handles GET /v1/relevance/route
func (h *Handler) routeRelevanceHandler(w http.ResponseWriter, r *http.Request) {
	states := splitList(r.URL.Query().Get("states"))
	if len(states) == 0 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "states is required")
		return
	}
	for _, s := range states {
		if !h.deps.Classifier.KnownState(s) {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "unknown state: "+s)
			return
		}
	}

	roads := h.deps.Classifier.RoadNamesForRoute(states)
	location := r.URL.Query().Get("location")
	result := h.deps.Classifier.ClassifyRoute(location, states, roads)

	w.Header().Set("Cache-Control", "public, max-age=300")
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"location":   location,
		"states":     states,
		"road_names": roads,
		"result":     result,
	})
}

// routeSummaryHandler handles POST /v1/relevance/route/summary
func (h *Handler) routeSummaryHandler(w http.ResponseWriter, r *http.Request) {
	var req routeSummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.States) == 0 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "states is required")
		return
	}
	if len(req.Locations) > maxSummaryLocations {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "too many locations")
		return
	}

	roads := h.deps.Classifier.RoadNamesForRoute(req.States)
	results := make([]classifiedLocation, 0, len(req.Locations))
	zones := make([]relevance.Zone, 0, len(req.Locations))
	for _, loc := range req.Locations {
		res := h.deps.Classifier.ClassifyRoute(loc, req.States, roads)
		results = append(results, classifiedLocation{Location: loc, Result: res})
		zones = append(zones, res.Zone)
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"summary": relevance.Tally(zones),
	})
}

// areaRelevanceHandler handles GET /v1/relevance/area
func (h *Handler) areaRelevanceHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	area := relevance.Area{Name: q.Get("area"), Slug: q.Get("slug"), State: q.Get("state")}
	if area.Name == "" && area.Slug == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "area is required")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"location": q.Get("location"),
		"area":     area,
		"match":    h.deps.Classifier.ClassifyArea(q.Get("location"), area),
	})
}

// riskWindowHandler handles GET /v1/risk-window
func (h *Handler) riskWindowHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("level")
	level, known := riskwindow.ParseLevel(raw)
	win := h.deps.Policy.WindowFor(raw)

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"level":         level,
		"known":         known,
		"lookback_days": win.Days(),
		"timespan":      win.Timespan(),
		"max_results":   win.MaxResults,
		"extended":      h.deps.Policy.RequiresExtendedWindow(raw),
		"since":         win.Since(time.Now().UTC()),
	})
}

// feedSearchHandler handles GET /v1/feed
func (h *Handler) feedSearchHandler(w http.ResponseWriter, r *http.Request) {
	if h.deps.Feed == nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "feed not configured")
		return
	}
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("area"))
	if name == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "area is required")
		return
	}
	area := relevance.Area{Name: name, Slug: relevance.Normalize(name), State: relevance.Normalize(q.Get("state"))}

	arts, err := h.deps.Feed.Search(r.Context(), area, q.Get("level"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=120")
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"area":  area,
		"data":  arts,
		"count": len(arts),
	})
}

// feedWatchedHandler handles GET /v1/feed/watched
func (h *Handler) feedWatchedHandler(w http.ResponseWriter, r *http.Request) {
	if h.deps.Poller == nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "feed polling not configured")
		return
	}

	type watched struct {
		Area      relevance.Area `json:"area"`
		RiskLevel string         `json:"risk_level,omitempty"`
		Articles  []feed.Article `json:"articles"`
		Count     int            `json:"count"`
	}
	var (
		out     []watched
		lastRun time.Time
	)
	for _, t := range h.deps.Poller.Targets() {
		arts, last := h.deps.Poller.Latest(t.Area.Slug)
		lastRun = last
		out = append(out, watched{Area: t.Area, RiskLevel: t.RiskLevel, Articles: arts, Count: len(arts)})
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":     out,
		"merged":   h.deps.Poller.All(),
		"last_run": lastRun,
	})
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
