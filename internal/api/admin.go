package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/lifecycle"
	"github.com/rajasatyajit/incidentwatch/internal/models"
)

const (
	maxLogLimit    = 1000
	defaultEvents  = 50
	maxEventsLimit = 500
)

// moderateHandler handles POST /v1/admin/reports/{id}/moderate
func (h *Handler) moderateHandler(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.ModerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.deps.Reports.ModerateSingle(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, report)
}

// bulkModerateHandler handles POST /v1/admin/reports/moderate
func (h *Handler) bulkModerateHandler(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.BulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	out, err := h.deps.Reports.ModerateBulk(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, out)
}

// moderationLogHandler handles GET /v1/admin/moderation-actions
func (h *Handler) moderationLogHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseModerationQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.deps.Reports.ModerationLog(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":      list,
		"count":     len(list),
		"timestamp": time.Now().UTC(),
	})
}

// recentEventsHandler handles GET /v1/admin/events
func (h *Handler) recentEventsHandler(w http.ResponseWriter, r *http.Request) {
	if h.deps.Events == nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "broadcast queue not configured")
		return
	}

	n := defaultEvents
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxEventsLimit {
			h.writeErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxEventsLimit))
			return
		}
		n = v
	}

	list, err := h.deps.Events.Recent(r.Context(), int64(n))
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindTransient, "recent_events", err))
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":  list,
		"count": len(list),
	})
}

// parseModerationQuery parses query parameters into ModerationQuery
func parseModerationQuery(r *http.Request) (models.ModerationQuery, error) {
	q := models.ModerationQuery{}
	v := r.URL.Query()

	switch et := models.EntityType(v.Get("entity_type")); et {
	case "", models.EntityReport, models.EntityUser:
		q.EntityType = et
	default:
		return q, fmt.Errorf("invalid entity_type: %s", et)
	}
	q.EntityID = v.Get("entity_id")

	if limitStr := v.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 0 || limit > maxLogLimit {
			return q, fmt.Errorf("limit must be between 0 and %d", maxLogLimit)
		}
		q.Limit = limit
	}

	if sinceStr := v.Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return q, fmt.Errorf("invalid since format: %s", sinceStr)
		}
		q.Since = since
	}

	return q, nil
}
