package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/events"
	"github.com/rajasatyajit/incidentwatch/internal/geo"
	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/metrics"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	"github.com/rajasatyajit/incidentwatch/internal/relevance"
	"github.com/rajasatyajit/incidentwatch/internal/store"
)

const (
	defaultBulkLimit = 500
	publishParallel  = 8
)

// Service drives reports through their lifecycle on top of a Store
type Service struct {
	store     store.Store
	publisher events.Publisher
	bulkLimit int
	now       func() time.Time
	newID     func() string
}

// Option configures a Service
type Option func(*Service)

// WithPublisher sets where broadcast triggers go
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithBulkLimit caps the number of ids accepted by ModerateBulk
func WithBulkLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bulkLimit = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService creates a lifecycle service
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		publisher: events.NopPublisher{},
		bulkLimit: defaultBulkLimit,
		// postgres keeps microseconds; truncating keeps round-trips equal
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock
func (s *Service) Now() time.Time { return s.now() }

// NewID returns a fresh entity id
func (s *Service) NewID() string { return s.newID() }

// Create validates input and stores a new active, pending report
func (s *Service) Create(ctx context.Context, in models.NewReport) (*models.Report, error) {
	const op = "create_report"

	incidentType, err := models.ParseIncidentType(in.IncidentType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidType, op, err)
	}
	if !(geo.Point{Lat: in.Latitude, Lng: in.Longitude}).Valid() {
		return nil, apperrors.New(apperrors.KindInvalidLocation, op, "coordinates out of range")
	}
	textStatus, err := models.ParseContentStatus(in.TextVerdict)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, op, err)
	}
	areaName := strings.TrimSpace(in.AreaName)
	slug := relevance.Normalize(in.AreaSlug)
	if slug == "" {
		slug = relevance.Normalize(areaName)
	}
	if slug == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, op, "area name is required")
	}

	now := s.now()
	r := &models.Report{
		ID:                    s.newID(),
		IncidentType:          incidentType,
		AreaName:              areaName,
		AreaSlug:              slug,
		State:                 relevance.Normalize(in.State),
		Landmark:              strings.TrimSpace(in.Landmark),
		Description:           strings.TrimSpace(in.Description),
		Location:              strings.TrimSpace(in.Location),
		Latitude:              in.Latitude,
		Longitude:             in.Longitude,
		Status:                models.StatusActive,
		ModerationStatus:      models.ModerationPending,
		TextModerationStatus:  textStatus,
		ImageModerationStatus: models.ContentNone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, s.fail(ctx, op, r.ID, err)
	}

	logger.ForReport(ctx, r.ID).Info("Report created", "incident_type", r.IncidentType, "area", r.AreaSlug)
	s.publish(ctx, events.FromReport(events.ReportCreated, *r, now))
	return r, nil
}

// Get loads a report
func (s *Service) Get(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, apperrors.Classify("get_report", id, err)
	}
	return r, nil
}

// AttachImage sets photo urls on a report and queues the image for review
func (s *Service) AttachImage(ctx context.Context, id string, photos models.PhotoSet, opts AttachOptions) (*models.Report, error) {
	const op = "attach_image"
	photos.URL = strings.TrimSpace(photos.URL)
	if photos.URL == "" {
		return nil, &apperrors.Error{Kind: apperrors.KindInvalidInput, Op: op, ReportID: id, Message: "photo url is required"}
	}

	r, err := s.store.UpdateReport(ctx, id, func(r *models.Report) (*models.ModerationAction, error) {
		return nil, ApplyPhotos(r, photos, opts)
	})
	if err != nil {
		return nil, s.fail(ctx, op, id, err)
	}
	logger.ForReport(ctx, id).Info("Photo attached", "overwrite", opts.Overwrite, "image_status", r.ImageModerationStatus)
	return r, nil
}

// ModerationRequest is a single-report admin decision
type ModerationRequest struct {
	Action        string `json:"action"`
	Reason        string `json:"reason"`
	InternalNotes string `json:"internal_notes"`
}

// ModerateSingle approves or removes one report and appends an audit record
func (s *Service) ModerateSingle(ctx context.Context, id string, req ModerationRequest) (*models.Report, error) {
	const op = "moderate"

	decision, err := models.ParseModerationDecision(req.Action)
	if err != nil {
		metrics.RecordModeration(req.Action, string(apperrors.KindInvalidAction), 0)
		return nil, &apperrors.Error{Kind: apperrors.KindInvalidAction, Op: op, ReportID: id, Err: err}
	}
	reason := strings.TrimSpace(req.Reason)
	if decision == models.DecisionRemove && reason == "" {
		metrics.RecordModeration(string(decision), string(apperrors.KindMissingReason), 0)
		return nil, &apperrors.Error{Kind: apperrors.KindMissingReason, Op: op, ReportID: id, Message: "a reason is required to remove a report"}
	}

	now := s.now()
	r, err := s.store.UpdateReport(ctx, id, func(r *models.Report) (*models.ModerationAction, error) {
		if err := ApplyDecision(r, decision, reason); err != nil {
			return nil, err
		}
		return s.action(r.ID, string(decision), reason, req.InternalNotes, now), nil
	})
	if err != nil {
		metrics.RecordModeration(string(decision), string(apperrors.KindOf(err)), 0)
		return nil, s.fail(ctx, op, id, err)
	}

	metrics.RecordModeration(string(decision), "ok", 1)
	logger.ForReport(ctx, id).Info("Report moderated", "action", decision, "status", r.Status)
	if r.Status == models.StatusRemoved {
		s.publish(ctx, events.FromReport(events.ReportRemoved, *r, now))
	}
	return r, nil
}

// BulkRequest is a moderation action over many reports
type BulkRequest struct {
	ReportIDs []string `json:"report_ids"`
	Action    string   `json:"action"`
	Reason    string   `json:"reason"`
}

// BulkOutcome lists what a bulk action changed
type BulkOutcome struct {
	Action  models.BulkAction `json:"action"`
	Updated []string          `json:"updated"`
	Skipped []string          `json:"skipped"`
}

// ModerateBulk validates the whole request before touching any report,
// then applies the action to every report in one store transaction.
// Removed reports are skipped.
func (s *Service) ModerateBulk(ctx context.Context, req BulkRequest) (*BulkOutcome, error) {
	const op = "moderate_bulk"

	ids := make([]string, 0, len(req.ReportIDs))
	for _, id := range req.ReportIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	// an empty selection is rejected whatever the action
	if len(ids) == 0 {
		metrics.RecordModeration(req.Action, string(apperrors.KindEmptySelection), 0)
		return nil, apperrors.New(apperrors.KindEmptySelection, op, "no report ids given")
	}
	action, err := models.ParseBulkAction(req.Action)
	if err != nil {
		metrics.RecordModeration(req.Action, string(apperrors.KindInvalidAction), 0)
		return nil, apperrors.Wrap(apperrors.KindInvalidAction, op, err)
	}
	if len(ids) > s.bulkLimit {
		return nil, apperrors.New(apperrors.KindInvalidInput, op, "too many report ids")
	}
	reason := strings.TrimSpace(req.Reason)
	if action == models.BulkRemove && reason == "" {
		metrics.RecordModeration(string(action), string(apperrors.KindMissingReason), 0)
		return nil, apperrors.New(apperrors.KindMissingReason, op, "a reason is required to remove reports")
	}

	now := s.now()
	res, err := s.store.UpdateReports(ctx, ids, func(r *models.Report) (*models.ModerationAction, error) {
		changed, err := ApplyBulk(r, action, reason)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, store.ErrSkip
		}
		return s.action(r.ID, string(action), reason, "", now), nil
	})
	if err != nil {
		metrics.RecordModeration(string(action), string(apperrors.KindOf(err)), 0)
		return nil, s.fail(ctx, op, "", err)
	}

	out := &BulkOutcome{Action: action, Updated: make([]string, 0, len(res.Updated)), Skipped: res.Skipped}
	var removed []events.Event
	for _, r := range res.Updated {
		out.Updated = append(out.Updated, r.ID)
		if r.Status == models.StatusRemoved {
			removed = append(removed, events.FromReport(events.ReportRemoved, r, now))
		}
	}
	if out.Skipped == nil {
		out.Skipped = []string{}
	}

	metrics.RecordModeration(string(action), "ok", len(out.Updated))
	logger.WithContext(ctx).Info("Bulk moderation applied",
		"action", action, "updated", len(out.Updated), "skipped", len(out.Skipped))
	if err := events.PublishAll(ctx, s.publisher, removed, publishParallel); err != nil {
		logger.WithContext(ctx).Warn("Broadcast publish failed", "action", action, "error", err)
	}
	return out, nil
}

// RecordVote stores a vote and applies its delta. The first ended vote on
// an active report ends it; later ones only add a confirmation row.
func (s *Service) RecordVote(ctx context.Context, c *models.Confirmation) (*models.Report, error) {
	delta := models.DeltaFor(c.ConfirmationType)
	r, err := s.store.RecordVote(ctx, c, delta)
	if err != nil {
		return nil, apperrors.Classify("record_vote", c.ReportID, err)
	}
	if delta.End && r.Status == models.StatusEnded && r.EndedAt != nil && r.EndedAt.Equal(c.CreatedAt) {
		logger.ForReport(ctx, r.ID).Info("Report ended by vote")
		s.publish(ctx, events.FromReport(events.ReportEnded, *r, c.CreatedAt))
	}
	return r, nil
}

// HasVoted reports whether userID already voted on reportID
func (s *Service) HasVoted(ctx context.Context, reportID, userID string) (bool, error) {
	ok, err := s.store.HasVoted(ctx, reportID, userID)
	if err != nil {
		return false, apperrors.Classify("has_voted", reportID, err)
	}
	return ok, nil
}

// Confirmations lists the votes on a report
func (s *Service) Confirmations(ctx context.Context, reportID string) ([]models.Confirmation, error) {
	list, err := s.store.ListConfirmations(ctx, reportID)
	if err != nil {
		return nil, apperrors.Classify("list_confirmations", reportID, err)
	}
	return list, nil
}

// ModerationLog returns audit records matching q
func (s *Service) ModerationLog(ctx context.Context, q models.ModerationQuery) ([]models.ModerationAction, error) {
	list, err := s.store.ListModerationActions(ctx, q)
	if err != nil {
		return nil, apperrors.Classify("list_moderation_actions", "", err)
	}
	return list, nil
}

func (s *Service) action(reportID, action, reason, notes string, at time.Time) *models.ModerationAction {
	return &models.ModerationAction{
		ID:            s.newID(),
		EntityType:    models.EntityReport,
		EntityID:      reportID,
		Action:        action,
		Reason:        reason,
		InternalNotes: strings.TrimSpace(notes),
		CreatedAt:     at,
	}
}

// publish sends a trigger; failures never fail the operation
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.ForReport(ctx, e.ReportID).Warn("Broadcast publish failed", "event", e.Type, "error", err)
	}
}

// fail classifies err and logs unexpected failures
func (s *Service) fail(ctx context.Context, op, reportID string, err error) error {
	err = apperrors.Classify(op, reportID, err)
	switch {
	case apperrors.IsTransient(err):
		logger.ForReport(ctx, reportID).Warn("Transient failure", "op", op, "error", err)
	case apperrors.IsKind(err, apperrors.KindInternal):
		logger.ForReport(ctx, reportID).Error("Operation failed", "op", op, "error", err)
	}
	return err
}
