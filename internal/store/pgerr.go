package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
	pgDeadlock            = "40P01"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"

	voterConstraint = "uq_confirmations_report_user"
)

// classify maps a driver error onto the engine error kinds
func classify(op, reportID string, err error) error {
	if err == nil {
		return nil
	}
	var typed *apperrors.Error
	if errors.As(err, &typed) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == voterConstraint {
				return &apperrors.Error{
					Kind:     apperrors.KindAlreadyVoted,
					Op:       op,
					ReportID: reportID,
					Message:  "user already voted on this report",
					Err:      err,
				}
			}
			return &apperrors.Error{Kind: apperrors.KindInternal, Op: op, ReportID: reportID, Err: errors.Join(apperrors.ErrConflict, err)}
		case pgForeignKeyViolation:
			return &apperrors.Error{Kind: apperrors.KindNotFound, Op: op, ReportID: reportID, Err: errors.Join(apperrors.ErrNotFound, err)}
		case pgSerializationFail, pgDeadlock, pgLockNotAvailable, pgQueryCanceled:
			return &apperrors.Error{Kind: apperrors.KindTransient, Op: op, ReportID: reportID, Err: err}
		}
	}
	var connErr *pgconn.ConnectError
	if pgconn.Timeout(err) || errors.As(err, &connErr) {
		return &apperrors.Error{Kind: apperrors.KindTransient, Op: op, ReportID: reportID, Err: err}
	}
	return apperrors.Classify(op, reportID, apperrors.DatabaseError{Operation: op, Err: err})
}
