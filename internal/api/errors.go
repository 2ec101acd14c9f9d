package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/logger"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	// DistanceKm is set when a vote was rejected for distance
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

// StatusFor maps an engine error kind to an HTTP status
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidType, apperrors.KindInvalidAction, apperrors.KindInvalidLocation,
		apperrors.KindMissingReason, apperrors.KindInvalidInput, apperrors.KindEmptySelection:
		return http.StatusBadRequest
	case apperrors.KindTooFar:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindAlreadyVoted, apperrors.KindTerminal, apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders an engine error. Internal failures are logged and
// their detail is withheld from the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)

	resp := ErrorResponse{
		Error:     http.StatusText(status),
		Kind:      string(kind),
		Timestamp: time.Now().UTC(),
		RequestID: requestID(r),
	}

	var e *apperrors.Error
	if errors.As(err, &e) {
		resp.Message = publicMessage(e)
		if e.Kind == apperrors.KindTooFar {
			d := e.DistanceKm
			resp.DistanceKm = &d
		}
		resp.Missing = e.Missing
	}

	switch status {
	case http.StatusInternalServerError:
		logger.WithContext(r.Context()).Error("Request failed", "error", err, "path", r.URL.Path)
		resp.Message = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.WithContext(r.Context()).Warn("Request failed transiently", "error", err, "path", r.URL.Path)
		w.Header().Set("Retry-After", "1")
		resp.Message = "temporarily unavailable, retry"
	}

	h.writeJSONResponse(w, status, resp)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: requestID(r),
	}

	h.writeJSONResponse(w, statusCode, response)
}

func publicMessage(e *apperrors.Error) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func requestID(r *http.Request) string {
	if id := logger.RequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apperrors.Error{Kind: apperrors.KindInvalidInput, Op: "decode_request", Message: "invalid JSON body", Err: err}
	}
	return nil
}
