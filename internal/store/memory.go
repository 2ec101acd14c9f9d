package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	"github.com/rajasatyajit/incidentwatch/pkg/utils"
)

type voterKey struct {
	reportID string
	userID   string
}

// InMemoryStore implements Store using in-memory storage. A single lock
// serializes all writes, which also gives per-report atomicity.
type InMemoryStore struct {
	mu            sync.RWMutex
	reports       map[string]models.Report
	confirmations map[string][]models.Confirmation
	voters        map[voterKey]bool
	actions       []models.ModerationAction
	now           func() time.Time
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports:       make(map[string]models.Report),
		confirmations: make(map[string][]models.Confirmation),
		voters:        make(map[voterKey]bool),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateReport stores a new report; ids must be unique
func (s *InMemoryStore) CreateReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return apperrors.Wrap(apperrors.KindInternal, "create_report", apperrors.ErrConflict)
	}
	s.reports[r.ID] = *r
	return nil
}

// GetReport retrieves a single report by ID
func (s *InMemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reports[id]
	if !exists {
		return nil, apperrors.NotFound("get_report", id)
	}
	return &r, nil
}

// HasVoted reports whether an identified user already voted on a report
func (s *InMemoryStore) HasVoted(ctx context.Context, reportID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voters[voterKey{reportID, userID}], nil
}

// RecordVote checks uniqueness and applies the delta under one lock
func (s *InMemoryStore) RecordVote(ctx context.Context, c *models.Confirmation, delta models.VoteDelta) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[c.ReportID]
	if !exists {
		return nil, apperrors.NotFound("record_vote", c.ReportID)
	}
	if !c.Anonymous() {
		key := voterKey{c.ReportID, *c.UserID}
		if s.voters[key] {
			return nil, &apperrors.Error{
				Kind:     apperrors.KindAlreadyVoted,
				Op:       "record_vote",
				ReportID: c.ReportID,
				Message:  "user already voted on this report",
			}
		}
		s.voters[key] = true
	}
	s.confirmations[c.ReportID] = append(s.confirmations[c.ReportID], *c)

	r.ConfirmationCount += delta.Confirmations
	r.DenialCount += delta.Denials
	if delta.End && r.Status == models.StatusActive {
		endedAt := c.CreatedAt
		r.Status = models.StatusEnded
		r.EndedAt = &endedAt
	}
	r.UpdatedAt = s.now()
	s.reports[r.ID] = r
	return &r, nil
}

// UpdateReport applies m to one report under the write lock
func (s *InMemoryStore) UpdateReport(ctx context.Context, id string, m Mutation) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return nil, apperrors.NotFound("update_report", id)
	}
	action, err := m(&r)
	if err != nil {
		return nil, err
	}
	r.ID = id
	r.UpdatedAt = s.now()
	s.reports[id] = r
	if action != nil {
		s.actions = append(s.actions, *action)
	}
	return &r, nil
}

// UpdateReports validates every id, stages all mutations and only then
// commits them, so a failure leaves every report untouched
func (s *InMemoryStore) UpdateReports(ctx context.Context, ids []string, m Mutation) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids = utils.Dedupe(ids)
	var missing []string
	for _, id := range ids {
		if _, exists := s.reports[id]; !exists {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return BulkResult{}, &apperrors.Error{
			Kind:    apperrors.KindNotFound,
			Op:      "update_reports",
			Missing: missing,
			Err:     apperrors.ErrNotFound,
		}
	}

	var (
		result  BulkResult
		actions []models.ModerationAction
		now     = s.now()
	)
	for _, id := range ids {
		r := s.reports[id]
		action, err := m(&r)
		if errors.Is(err, ErrSkip) {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if err != nil {
			return BulkResult{}, err
		}
		r.ID = id
		r.UpdatedAt = now
		result.Updated = append(result.Updated, r)
		if action != nil {
			actions = append(actions, *action)
		}
	}

	for _, r := range result.Updated {
		s.reports[r.ID] = r
	}
	s.actions = append(s.actions, actions...)
	return result, nil
}

// ListConfirmations returns a report's votes, oldest first
func (s *InMemoryStore) ListConfirmations(ctx context.Context, reportID string) ([]models.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.reports[reportID]; !exists {
		return nil, apperrors.NotFound("list_confirmations", reportID)
	}
	out := make([]models.Confirmation, len(s.confirmations[reportID]))
	copy(out, s.confirmations[reportID])
	return out, nil
}

// ListModerationActions returns audit records, newest first
func (s *InMemoryStore) ListModerationActions(ctx context.Context, q models.ModerationQuery) ([]models.ModerationAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ModerationAction
	for _, a := range s.actions {
		if q.Matches(a) {
			result = append(result, a)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}
	return result, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
