package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/models"
)

type mockDB struct {
	ExecFn         func(ctx context.Context, sql string, args ...any) error
	QueryFn        func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFn     func(ctx context.Context, sql string, args ...any) pgx.Row
	InTxFn         func(ctx context.Context, fn func(tx pgx.Tx) error) error
	HealthFn       func(ctx context.Context) error
	IsConfiguredFn func() bool
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) error {
	if m.ExecFn != nil {
		return m.ExecFn(ctx, sql, args...)
	}
	return nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql, args...)
	}
	return nil, errors.New("no query")
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFn != nil {
		return m.QueryRowFn(ctx, sql, args...)
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (m *mockDB) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if m.InTxFn != nil {
		return m.InTxFn(ctx, fn)
	}
	return errors.New("no tx")
}

func (m *mockDB) Health(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn(ctx)
	}
	return nil
}

func (m *mockDB) IsConfigured() bool {
	if m.IsConfiguredFn != nil {
		return m.IsConfiguredFn()
	}
	return true
}

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

func TestNew_SelectsImplementation(t *testing.T) {
	if _, ok := New(&mockDB{}).(*PostgresStore); !ok {
		t.Error("expected postgres store for configured db")
	}
	if _, ok := New(&mockDB{IsConfiguredFn: func() bool { return false }}).(*InMemoryStore); !ok {
		t.Error("expected in-memory store without db")
	}
	if _, ok := New(nil).(*InMemoryStore); !ok {
		t.Error("expected in-memory store for nil db")
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	var gotSQL string
	s := NewPostgresStore(&mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) error {
		gotSQL = sql
		return nil
	}})
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS reports", "uq_confirmations_report_user", "moderation_actions"} {
		if !strings.Contains(gotSQL, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}

func TestPostgresStore_CreateReport_PropagatesError(t *testing.T) {
	var gotSQL string
	s := NewPostgresStore(&mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) error {
		gotSQL = sql
		if len(args) != 23 {
			t.Errorf("expected 23 args, got %d", len(args))
		}
		return errors.New("exec failure")
	}})
	err := s.CreateReport(context.Background(), testReport("r1"))
	if !apperrors.IsKind(err, apperrors.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(gotSQL, "INSERT INTO reports") {
		t.Errorf("unexpected SQL: %s", gotSQL)
	}
}

func TestPostgresStore_GetReport_NotFound(t *testing.T) {
	s := NewPostgresStore(&mockDB{})
	_, err := s.GetReport(context.Background(), "x")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPostgresStore_GetReport_Deadline(t *testing.T) {
	s := NewPostgresStore(&mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return fakeRow{err: context.DeadlineExceeded}
	}})
	_, err := s.GetReport(context.Background(), "x")
	if !apperrors.IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestPostgresStore_HasVoted(t *testing.T) {
	calls := 0
	s := NewPostgresStore(&mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		calls++
		return fakeRow{err: errors.New("db down")}
	}})
	ok, err := s.HasVoted(context.Background(), "r1", "")
	if ok || err != nil || calls != 0 {
		t.Errorf("anonymous voter must short-circuit, got %v %v calls=%d", ok, err, calls)
	}
	if _, err := s.HasVoted(context.Background(), "r1", "u1"); err == nil {
		t.Error("expected error from db")
	}
}

func TestPostgresStore_RecordVote_Classifies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperrors.Kind
	}{
		{"duplicate voter", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: voterConstraint}, apperrors.KindAlreadyVoted},
		{"missing report", &pgconn.PgError{Code: pgForeignKeyViolation}, apperrors.KindNotFound},
		{"serialization", &pgconn.PgError{Code: pgSerializationFail}, apperrors.KindTransient},
		{"deadlock", &pgconn.PgError{Code: pgDeadlock}, apperrors.KindTransient},
		{"deadline", context.DeadlineExceeded, apperrors.KindTransient},
		{"other", errors.New("boom"), apperrors.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPostgresStore(&mockDB{InTxFn: func(ctx context.Context, fn func(pgx.Tx) error) error {
				return tt.err
			}})
			_, err := s.RecordVote(context.Background(), vote("r1", "u1", models.ConfirmationConfirm), models.VoteDelta{Confirmations: 1})
			if got := apperrors.KindOf(err); got != tt.kind {
				t.Errorf("expected %s, got %s (%v)", tt.kind, got, err)
			}
		})
	}
}

func TestPostgresStore_UpdateReport_PassesTypedErrors(t *testing.T) {
	terminal := apperrors.New(apperrors.KindTerminal, "moderate", "report is removed")
	s := NewPostgresStore(&mockDB{InTxFn: func(ctx context.Context, fn func(pgx.Tx) error) error {
		return terminal
	}})
	_, err := s.UpdateReport(context.Background(), "r1", nil)
	if err != terminal {
		t.Errorf("expected typed error to pass through, got %v", err)
	}
	_, err = s.UpdateReports(context.Background(), []string{"r1"}, nil)
	if err != terminal {
		t.Errorf("expected typed error to pass through, got %v", err)
	}
}

func TestPostgresStore_ListModerationActions_BuildsQuery(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	s := NewPostgresStore(&mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		gotSQL, gotArgs = sql, args
		return nil, errors.New("db error")
	}})
	_, err := s.ListModerationActions(context.Background(), models.ModerationQuery{
		EntityType: models.EntityReport, EntityID: "r1", Limit: 5,
	})
	if err == nil || !strings.Contains(err.Error(), "query moderation actions") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	for _, want := range []string{"entity_type = $1", "entity_id = $2", "LIMIT $3", "ORDER BY created_at DESC"} {
		if !strings.Contains(gotSQL, want) {
			t.Errorf("expected %q in %s", want, gotSQL)
		}
	}
	if len(gotArgs) != 3 {
		t.Errorf("expected 3 args, got %v", gotArgs)
	}
}

func TestClassify(t *testing.T) {
	if classify("op", "r", nil) != nil {
		t.Error("nil must stay nil")
	}
	err := classify("op", "r", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "reports_pkey"})
	if !errors.Is(err, apperrors.ErrConflict) || apperrors.KindOf(err) != apperrors.KindInternal {
		t.Errorf("expected internal conflict, got %v", err)
	}
	err = classify("op", "r", &pgconn.PgError{Code: pgQueryCanceled})
	var e *apperrors.Error
	if !errors.As(err, &e) || e.Kind != apperrors.KindTransient || e.ReportID != "r" {
		t.Errorf("expected transient with report id, got %#v", err)
	}
}
