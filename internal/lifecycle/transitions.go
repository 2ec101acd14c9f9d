// Package lifecycle owns report state: creation, photo attachment,
// vote-driven transitions and single or bulk moderation.
package lifecycle

import (
	"strings"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/models"
)

// AttachOptions controls what happens when a report already has a photo
type AttachOptions struct {
	Overwrite bool `json:"overwrite"`
	// Remoderate sends an overwritten image back to pending review
	Remoderate bool `json:"remoderate"`
}

// ApplyPhotos sets the photo urls on r. A report keeps its first photo
// unless opts.Overwrite is set; removed reports never change.
func ApplyPhotos(r *models.Report, photos models.PhotoSet, opts AttachOptions) error {
	const op = "attach_image"
	if r.Status == models.StatusRemoved {
		return &apperrors.Error{Kind: apperrors.KindTerminal, Op: op, ReportID: r.ID, Message: "report has been removed"}
	}
	replacing := r.HasPhoto()
	if replacing && !opts.Overwrite {
		return &apperrors.Error{Kind: apperrors.KindConflict, Op: op, ReportID: r.ID, Message: "report already has a photo"}
	}

	r.PhotoURL = photos.URL
	r.PhotoThumbURL = photos.ThumbURL
	r.PhotoPreviewURL = photos.PreviewURL

	if !replacing || opts.Remoderate || r.ImageModerationStatus == models.ContentNone {
		r.ImageModerationStatus = models.ContentPending
	}
	return nil
}

// ApplyDecision applies a single moderation verdict. Removal needs a reason
// and removed reports are terminal.
func ApplyDecision(r *models.Report, d models.ModerationDecision, reason string) error {
	const op = "moderate"
	if r.Status == models.StatusRemoved {
		return &apperrors.Error{Kind: apperrors.KindTerminal, Op: op, ReportID: r.ID, Message: "report has already been removed"}
	}
	switch d {
	case models.DecisionApprove:
		r.ModerationStatus = models.ModerationApproved
	case models.DecisionRemove:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return &apperrors.Error{Kind: apperrors.KindMissingReason, Op: op, ReportID: r.ID, Message: "a reason is required to remove a report"}
		}
		markRemoved(r, reason)
	default:
		return &apperrors.Error{Kind: apperrors.KindInvalidAction, Op: op, ReportID: r.ID, Message: "unknown action " + string(d)}
	}
	return nil
}

// ApplyBulk applies a bulk action to one report and reports whether
// anything changed. Removed reports and image approvals on reports
// without a photo are left alone.
func ApplyBulk(r *models.Report, a models.BulkAction, reason string) (bool, error) {
	if r.Status == models.StatusRemoved {
		return false, nil
	}
	switch a {
	case models.BulkApproveText:
		r.TextModerationStatus = models.ContentApproved
	case models.BulkApproveImage:
		if !r.HasPhoto() {
			return false, nil
		}
		r.ImageModerationStatus = models.ContentApproved
	case models.BulkApproveAll:
		r.TextModerationStatus = models.ContentApproved
		if r.HasPhoto() {
			r.ImageModerationStatus = models.ContentApproved
		}
		r.ModerationStatus = models.ModerationApproved
	case models.BulkRemove:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return false, &apperrors.Error{Kind: apperrors.KindMissingReason, Op: "moderate_bulk", ReportID: r.ID, Message: "a reason is required to remove a report"}
		}
		markRemoved(r, reason)
	default:
		return false, &apperrors.Error{Kind: apperrors.KindInvalidAction, Op: "moderate_bulk", Message: "unknown action " + string(a)}
	}
	return true, nil
}

// markRemoved sets every removal field together so status and moderation
// never disagree
func markRemoved(r *models.Report, reason string) {
	r.Status = models.StatusRemoved
	r.ModerationStatus = models.ModerationRemoved
	r.RemovalReason = reason
}
