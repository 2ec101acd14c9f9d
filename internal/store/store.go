package store

import (
	"context"
	"errors"

	pgx "github.com/jackc/pgx/v5"
	"github.com/rajasatyajit/incidentwatch/internal/models"
)

// ErrSkip tells UpdateReports to leave a report untouched and list it as skipped
var ErrSkip = errors.New("skip report")

// Mutation edits a locked report in place and returns the audit record to
// append alongside the write, or nil. Returning ErrSkip leaves the report
// as it was; any other error aborts the whole update with no writes.
type Mutation func(r *models.Report) (*models.ModerationAction, error)

// BulkResult is the outcome of a multi-report update
type BulkResult struct {
	Updated []models.Report
	Skipped []string
}

// Store defines the persistence surface of the engine. Implementations
// serialize writes per report and apply each report write atomically.
type Store interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	HasVoted(ctx context.Context, reportID, userID string) (bool, error)
	// RecordVote inserts the confirmation and applies delta in one atomic
	// step. A second vote by the same identified user fails AlreadyVoted.
	RecordVote(ctx context.Context, c *models.Confirmation, delta models.VoteDelta) (*models.Report, error)
	UpdateReport(ctx context.Context, id string, m Mutation) (*models.Report, error)
	// UpdateReports checks every id exists before writing anything
	UpdateReports(ctx context.Context, ids []string, m Mutation) (BulkResult, error)
	ListConfirmations(ctx context.Context, reportID string) ([]models.Confirmation, error)
	ListModerationActions(ctx context.Context, q models.ModerationQuery) ([]models.ModerationAction, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db != nil && db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
