package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/models"
)

func testReport(id string) *models.Report {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.Report{
		ID:                    id,
		IncidentType:          models.IncidentRobbery,
		AreaName:              "Ikeja",
		AreaSlug:              "ikeja",
		State:                 "lagos",
		Latitude:              6.5244,
		Longitude:             3.3792,
		Status:                models.StatusActive,
		ModerationStatus:      models.ModerationPending,
		TextModerationStatus:  models.ContentNone,
		ImageModerationStatus: models.ContentNone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func vote(reportID, user string, t models.ConfirmationType) *models.Confirmation {
	c := &models.Confirmation{
		ID:               fmt.Sprintf("%s-%s-%s", reportID, user, t),
		ReportID:         reportID,
		ConfirmationType: t,
		CreatedAt:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if user != "" {
		c.UserID = &user
	}
	return c
}

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.CreateReport(ctx, testReport("r1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateReport(ctx, testReport("r1")); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("expected conflict on duplicate id, got %v", err)
	}

	got, err := s.GetReport(ctx, "r1")
	if err != nil || got.AreaSlug != "ikeja" {
		t.Fatalf("get: %+v %v", got, err)
	}
	got.AreaSlug = "mutated"
	again, _ := s.GetReport(ctx, "r1")
	if again.AreaSlug != "ikeja" {
		t.Error("returned report must be a copy")
	}

	_, err = s.GetReport(ctx, "missing")
	if !apperrors.IsKind(err, apperrors.KindNotFound) || !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestInMemoryStore_RecordVote(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	s.CreateReport(ctx, testReport("r1"))

	r, err := s.RecordVote(ctx, vote("r1", "u1", models.ConfirmationConfirm), models.VoteDelta{Confirmations: 1})
	if err != nil || r.ConfirmationCount != 1 {
		t.Fatalf("expected count 1, got %+v %v", r, err)
	}
	r, err = s.RecordVote(ctx, vote("r1", "u2", models.ConfirmationDeny), models.VoteDelta{Denials: 1})
	if err != nil || r.DenialCount != 1 || r.ConfirmationCount != 1 {
		t.Fatalf("unexpected counters %+v %v", r, err)
	}

	// same user, different type
	_, err = s.RecordVote(ctx, vote("r1", "u1", models.ConfirmationDeny), models.VoteDelta{Denials: 1})
	if !apperrors.IsKind(err, apperrors.KindAlreadyVoted) {
		t.Fatalf("expected AlreadyVoted, got %v", err)
	}
	r, _ = s.GetReport(ctx, "r1")
	if r.DenialCount != 1 {
		t.Errorf("rejected vote changed counters: %+v", r)
	}

	// anonymous votes are never deduplicated
	for i := 0; i < 2; i++ {
		if _, err := s.RecordVote(ctx, vote("r1", "", models.ConfirmationConfirm), models.VoteDelta{Confirmations: 1}); err != nil {
			t.Fatalf("anonymous vote %d: %v", i, err)
		}
	}
	list, _ := s.ListConfirmations(ctx, "r1")
	if len(list) != 4 {
		t.Errorf("expected 4 confirmations, got %d", len(list))
	}

	voted, _ := s.HasVoted(ctx, "r1", "u1")
	notVoted, _ := s.HasVoted(ctx, "r1", "u9")
	anon, _ := s.HasVoted(ctx, "r1", "")
	if !voted || notVoted || anon {
		t.Errorf("HasVoted mismatch: %v %v %v", voted, notVoted, anon)
	}

	_, err = s.RecordVote(ctx, vote("missing", "u1", models.ConfirmationConfirm), models.VoteDelta{Confirmations: 1})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestInMemoryStore_EndedFirstVoteWins(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	s.CreateReport(ctx, testReport("r1"))

	first := vote("r1", "", models.ConfirmationEnded)
	r, err := s.RecordVote(ctx, first, models.VoteDelta{End: true})
	if err != nil || r.Status != models.StatusEnded || r.EndedAt == nil || !r.EndedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected ended at %v, got %+v %v", first.CreatedAt, r, err)
	}

	second := vote("r1", "", models.ConfirmationEnded)
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	r, _ = s.RecordVote(ctx, second, models.VoteDelta{End: true})
	if !r.EndedAt.Equal(first.CreatedAt) {
		t.Errorf("repeat ended vote reset ended_at to %v", r.EndedAt)
	}
}

func TestInMemoryStore_ConcurrentVotes(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	s.CreateReport(ctx, testReport("r1"))

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	dupes := 0
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.RecordVote(ctx, vote("r1", fmt.Sprintf("u%d", i), models.ConfirmationConfirm), models.VoteDelta{Confirmations: 1})
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.RecordVote(ctx, vote("r1", "same", models.ConfirmationConfirm), models.VoteDelta{Confirmations: 1})
			if apperrors.IsKind(err, apperrors.KindAlreadyVoted) {
				mu.Lock()
				dupes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	r, _ := s.GetReport(ctx, "r1")
	if r.ConfirmationCount != n+1 {
		t.Errorf("expected %d confirmations, got %d", n+1, r.ConfirmationCount)
	}
	if dupes != n-1 {
		t.Errorf("expected %d AlreadyVoted, got %d", n-1, dupes)
	}
}

func TestInMemoryStore_UpdateReport(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	s.CreateReport(ctx, testReport("r1"))

	action := &models.ModerationAction{ID: "a1", EntityType: models.EntityReport, EntityID: "r1", Action: "approve", CreatedAt: time.Now()}
	r, err := s.UpdateReport(ctx, "r1", func(r *models.Report) (*models.ModerationAction, error) {
		r.ModerationStatus = models.ModerationApproved
		r.ID = "hijacked"
		return action, nil
	})
	if err != nil || r.ModerationStatus != models.ModerationApproved || r.ID != "r1" {
		t.Fatalf("unexpected %+v %v", r, err)
	}

	boom := errors.New("boom")
	_, err = s.UpdateReport(ctx, "r1", func(r *models.Report) (*models.ModerationAction, error) {
		r.ModerationStatus = models.ModerationRemoved
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	r, _ = s.GetReport(ctx, "r1")
	if r.ModerationStatus != models.ModerationApproved {
		t.Error("failed mutation must not be written")
	}

	actions, _ := s.ListModerationActions(ctx, models.ModerationQuery{EntityID: "r1"})
	if len(actions) != 1 || actions[0].ID != "a1" {
		t.Errorf("expected one audit record, got %+v", actions)
	}

	_, err = s.UpdateReport(ctx, "missing", func(*models.Report) (*models.ModerationAction, error) { return nil, nil })
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestInMemoryStore_UpdateReports(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		s.CreateReport(ctx, testReport(id))
	}
	approve := func(r *models.Report) (*models.ModerationAction, error) {
		if r.ID == "r2" {
			return nil, ErrSkip
		}
		r.ModerationStatus = models.ModerationApproved
		return &models.ModerationAction{ID: "a-" + r.ID, EntityType: models.EntityReport, EntityID: r.ID}, nil
	}

	t.Run("missing id writes nothing", func(t *testing.T) {
		_, err := s.UpdateReports(ctx, []string{"r1", "nope", "r3", "gone"}, approve)
		var e *apperrors.Error
		if !errors.As(err, &e) || e.Kind != apperrors.KindNotFound || len(e.Missing) != 2 {
			t.Fatalf("expected NotFound listing 2 ids, got %v", err)
		}
		r, _ := s.GetReport(ctx, "r1")
		if r.ModerationStatus != models.ModerationPending {
			t.Error("report changed despite NotFound")
		}
	})

	t.Run("mutation error writes nothing", func(t *testing.T) {
		n := 0
		_, err := s.UpdateReports(ctx, []string{"r1", "r3"}, func(r *models.Report) (*models.ModerationAction, error) {
			n++
			if n == 2 {
				return nil, errors.New("boom")
			}
			r.ModerationStatus = models.ModerationApproved
			return nil, nil
		})
		if err == nil {
			t.Fatal("expected error")
		}
		r, _ := s.GetReport(ctx, "r1")
		if r.ModerationStatus != models.ModerationPending {
			t.Error("first report written despite later failure")
		}
	})

	t.Run("skips and dedupes", func(t *testing.T) {
		res, err := s.UpdateReports(ctx, []string{"r1", "r2", "r1", "r3"}, approve)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Updated) != 2 || len(res.Skipped) != 1 || res.Skipped[0] != "r2" {
			t.Fatalf("unexpected result %+v", res)
		}
		actions, _ := s.ListModerationActions(ctx, models.ModerationQuery{})
		if len(actions) != 2 {
			t.Errorf("expected 2 audit records, got %d", len(actions))
		}
	})
}

func TestInMemoryStore_ListModerationActions(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	s.CreateReport(ctx, testReport("r1"))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		i := i
		s.UpdateReport(ctx, "r1", func(r *models.Report) (*models.ModerationAction, error) {
			return &models.ModerationAction{
				ID: fmt.Sprintf("a%d", i), EntityType: models.EntityReport, EntityID: "r1",
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}, nil
		})
	}

	got, _ := s.ListModerationActions(ctx, models.ModerationQuery{Limit: 2})
	if len(got) != 2 || got[0].ID != "a2" || got[1].ID != "a1" {
		t.Errorf("expected newest first with limit, got %+v", got)
	}
	got, _ = s.ListModerationActions(ctx, models.ModerationQuery{Since: base.Add(90 * time.Minute)})
	if len(got) != 1 || got[0].ID != "a2" {
		t.Errorf("expected since filter, got %+v", got)
	}

	if _, err := s.ListConfirmations(ctx, "missing"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if s.Health(ctx) != nil {
		t.Error("in-memory health must be nil")
	}
}
