package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/geo"
	"github.com/rajasatyajit/incidentwatch/internal/lifecycle"
	middlewares "github.com/rajasatyajit/incidentwatch/internal/middleware"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	"github.com/rajasatyajit/incidentwatch/internal/verification"
)

type photoRequest struct {
	models.PhotoSet
	lifecycle.AttachOptions
}

type voteRequest struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	VoterID          string   `json:"voter_id"`
	ConfirmationType string   `json:"confirmation_type"`
}

// createReportHandler handles POST /v1/reports
func (h *Handler) createReportHandler(w http.ResponseWriter, r *http.Request) {
	var in models.NewReport
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.deps.Reports.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/reports/"+report.ID)
	h.writeJSONResponse(w, http.StatusCreated, report)
}

// getReportHandler handles GET /v1/reports/{id}
func (h *Handler) getReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, report)
}

// attachPhotoHandler handles POST /v1/reports/{id}/photo
func (h *Handler) attachPhotoHandler(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.deps.Reports.AttachImage(r.Context(), chi.URLParam(r, "id"), req.PhotoSet, req.AttachOptions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, report)
}

// castVoteHandler handles POST /v1/reports/{id}/confirmations
func (h *Handler) castVoteHandler(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	// the vote type is judged before the voter's location
	if _, err := models.ParseConfirmationType(req.ConfirmationType); err != nil {
		h.writeError(w, r, &apperrors.Error{Kind: apperrors.KindInvalidType, Op: "cast_vote", ReportID: chi.URLParam(r, "id"), Err: err})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		h.writeError(w, r, apperrors.New(apperrors.KindInvalidLocation, "cast_vote", "voter location is required"))
		return
	}

	voterID := strings.TrimSpace(req.VoterID)
	if voterID == "" {
		voterID = strings.TrimSpace(r.Header.Get(middlewares.VoterHeader))
	}

	out, err := h.deps.Gate.CastVote(r.Context(), verification.Vote{
		ReportID: chi.URLParam(r, "id"),
		Voter:    geo.Point{Lat: *req.Latitude, Lng: *req.Longitude},
		VoterID:  voterID,
		Type:     req.ConfirmationType,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, out)
}

// listConfirmationsHandler handles GET /v1/reports/{id}/confirmations
func (h *Handler) listConfirmationsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Reports.Confirmations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":  list,
		"count": len(list),
	})
}
