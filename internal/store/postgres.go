package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	"github.com/rajasatyajit/incidentwatch/pkg/utils"
)

// Schema is the DDL for reports, confirmations and moderation actions
//
//go:embed schema.sql
var Schema string

const reportColumns = `
	id, incident_type, area_name, area_slug, state, landmark, description, location,
	latitude, longitude, status, moderation_status, text_moderation_status,
	image_moderation_status, removal_reason, photo_url, photo_thumb_url,
	photo_preview_url, confirmation_count, denial_count, created_at, ended_at, updated_at`

const defaultQueryTimeout = 5 * time.Second

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db      Database
	timeout time.Duration
}

// Option configures a PostgresStore
type Option func(*PostgresStore)

// WithQueryTimeout bounds read queries issued outside a transaction
func WithQueryTimeout(d time.Duration) Option {
	return func(s *PostgresStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db, timeout: defaultQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the embedded schema; every statement is idempotent
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	err := row.Scan(
		&r.ID, &r.IncidentType, &r.AreaName, &r.AreaSlug, &r.State, &r.Landmark,
		&r.Description, &r.Location, &r.Latitude, &r.Longitude, &r.Status,
		&r.ModerationStatus, &r.TextModerationStatus, &r.ImageModerationStatus,
		&r.RemovalReason, &r.PhotoURL, &r.PhotoThumbURL, &r.PhotoPreviewURL,
		&r.ConfirmationCount, &r.DenialCount, &r.CreatedAt, &r.EndedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReport inserts a new report
func (s *PostgresStore) CreateReport(ctx context.Context, r *models.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23)
	`
	err := s.db.Exec(ctx, query,
		r.ID, r.IncidentType, r.AreaName, r.AreaSlug, r.State, r.Landmark,
		r.Description, r.Location, r.Latitude, r.Longitude, r.Status,
		r.ModerationStatus, r.TextModerationStatus, r.ImageModerationStatus,
		r.RemovalReason, r.PhotoURL, r.PhotoThumbURL, r.PhotoPreviewURL,
		r.ConfirmationCount, r.DenialCount, r.CreatedAt, r.EndedAt, r.UpdatedAt,
	)
	if err != nil {
		return classify("create_report", r.ID, fmt.Errorf("insert report: %w", err))
	}
	return nil
}

// GetReport retrieves a single report by ID
func (s *PostgresStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r, err := scanReport(s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("get_report", id)
		}
		return nil, classify("get_report", id, fmt.Errorf("scan report: %w", err))
	}
	return r, nil
}

// HasVoted reports whether an identified user already voted on a report
func (s *PostgresStore) HasVoted(ctx context.Context, reportID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM confirmations WHERE report_id = $1 AND user_id = $2)`,
		reportID, userID,
	).Scan(&exists)
	if err != nil {
		return false, classify("has_voted", reportID, err)
	}
	return exists, nil
}

// RecordVote inserts the confirmation and applies delta in one transaction.
// The partial unique index on (report_id, user_id) settles duplicate races;
// counters use in-place increments and the ended transition only fires
// while the report is still active.
func (s *PostgresStore) RecordVote(ctx context.Context, c *models.Confirmation, delta models.VoteDelta) (*models.Report, error) {
	var updated *models.Report
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		var userID any
		if !c.Anonymous() {
			userID = *c.UserID
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO confirmations (id, report_id, user_id, latitude, longitude, distance_km, confirmation_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ID, c.ReportID, userID, c.Latitude, c.Longitude, c.DistanceKm, c.ConfirmationType, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert confirmation: %w", err)
		}

		row := tx.QueryRow(ctx, `
			UPDATE reports SET
				confirmation_count = confirmation_count + $2,
				denial_count = denial_count + $3,
				status = CASE WHEN $4 AND status = 'active' THEN 'ended' ELSE status END,
				ended_at = CASE WHEN $4 AND status = 'active' THEN $5::timestamptz ELSE ended_at END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+reportColumns,
			c.ReportID, delta.Confirmations, delta.Denials, delta.End, c.CreatedAt,
		)
		r, err := scanReport(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("record_vote", c.ReportID)
			}
			return fmt.Errorf("apply vote: %w", err)
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, classify("record_vote", c.ReportID, err)
	}
	return updated, nil
}

const lockReport = `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 FOR UPDATE`

// writeReport persists the mutable fields of a locked report in one statement
func writeReport(ctx context.Context, tx pgx.Tx, r *models.Report) error {
	err := tx.QueryRow(ctx, `
		UPDATE reports SET
			status = $2,
			moderation_status = $3,
			text_moderation_status = $4,
			image_moderation_status = $5,
			removal_reason = $6,
			photo_url = $7,
			photo_thumb_url = $8,
			photo_preview_url = $9,
			ended_at = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, r.ID, r.Status, r.ModerationStatus, r.TextModerationStatus, r.ImageModerationStatus,
		r.RemovalReason, r.PhotoURL, r.PhotoThumbURL, r.PhotoPreviewURL, r.EndedAt,
	).Scan(&r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update report %s: %w", r.ID, err)
	}
	return nil
}

func insertAction(ctx context.Context, tx pgx.Tx, a *models.ModerationAction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO moderation_actions (id, entity_type, entity_id, action, reason, internal_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.EntityType, a.EntityID, a.Action, a.Reason, a.InternalNotes, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert moderation action: %w", err)
	}
	return nil
}

// UpdateReport locks the row, applies m and writes the result with its
// audit record in the same transaction
func (s *PostgresStore) UpdateReport(ctx context.Context, id string, m Mutation) (*models.Report, error) {
	var updated *models.Report
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		r, err := scanReport(tx.QueryRow(ctx, lockReport, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("update_report", id)
			}
			return fmt.Errorf("lock report: %w", err)
		}
		action, err := m(r)
		if err != nil {
			return err
		}
		r.ID = id
		if err := writeReport(ctx, tx, r); err != nil {
			return err
		}
		if action != nil {
			if err := insertAction(ctx, tx, action); err != nil {
				return err
			}
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, classify("update_report", id, err)
	}
	return updated, nil
}

// UpdateReports locks every row up front, fails NotFound before any write
// when an id is unknown, and commits all changes together
func (s *PostgresStore) UpdateReports(ctx context.Context, ids []string, m Mutation) (BulkResult, error) {
	ids = utils.Dedupe(ids)
	var result BulkResult
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+reportColumns+` FROM reports WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
		if err != nil {
			return fmt.Errorf("lock reports: %w", err)
		}
		locked := make(map[string]*models.Report, len(ids))
		for rows.Next() {
			r, err := scanReport(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan report: %w", err)
			}
			locked[r.ID] = r
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("lock reports: %w", err)
		}

		var missing []string
		for _, id := range ids {
			if _, ok := locked[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return &apperrors.Error{
				Kind:    apperrors.KindNotFound,
				Op:      "update_reports",
				Missing: missing,
				Err:     apperrors.ErrNotFound,
			}
		}

		for _, id := range ids {
			r := locked[id]
			action, err := m(r)
			if errors.Is(err, ErrSkip) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			if err != nil {
				return err
			}
			r.ID = id
			if err := writeReport(ctx, tx, r); err != nil {
				return err
			}
			if action != nil {
				if err := insertAction(ctx, tx, action); err != nil {
					return err
				}
			}
			result.Updated = append(result.Updated, *r)
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, classify("update_reports", "", err)
	}
	return result, nil
}

// ListConfirmations returns a report's votes, oldest first
func (s *PostgresStore) ListConfirmations(ctx context.Context, reportID string) ([]models.Confirmation, error) {
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, report_id, user_id, latitude, longitude, distance_km, confirmation_type, created_at
		FROM confirmations
		WHERE report_id = $1
		ORDER BY created_at, id
	`, reportID)
	if err != nil {
		return nil, classify("list_confirmations", reportID, fmt.Errorf("query confirmations: %w", err))
	}
	defer rows.Close()

	var out []models.Confirmation
	for rows.Next() {
		var c models.Confirmation
		if err := rows.Scan(&c.ID, &c.ReportID, &c.UserID, &c.Latitude, &c.Longitude,
			&c.DistanceKm, &c.ConfirmationType, &c.CreatedAt); err != nil {
			return nil, classify("list_confirmations", reportID, fmt.Errorf("scan confirmation: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_confirmations", reportID, err)
	}
	return out, nil
}

// ListModerationActions returns audit records, newest first
func (s *PostgresStore) ListModerationActions(ctx context.Context, q models.ModerationQuery) ([]models.ModerationAction, error) {
	query := `
		SELECT id, entity_type, entity_id, action, reason, internal_notes, created_at
		FROM moderation_actions
		WHERE 1=1
	`
	var args []any
	argIndex := 1

	if q.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", argIndex)
		args = append(args, q.EntityType)
		argIndex++
	}
	if q.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argIndex)
		args = append(args, q.EntityID)
		argIndex++
	}
	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list_moderation_actions", "", fmt.Errorf("query moderation actions: %w", err))
	}
	defer rows.Close()

	var out []models.ModerationAction
	for rows.Next() {
		var a models.ModerationAction
		if err := rows.Scan(&a.ID, &a.EntityType, &a.EntityID, &a.Action, &a.Reason,
			&a.InternalNotes, &a.CreatedAt); err != nil {
			return nil, classify("list_moderation_actions", "", fmt.Errorf("scan moderation action: %w", err))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_moderation_actions", "", err)
	}
	return out, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
