package errors

import (
	"context"
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound    = errors.New("resource not found")
	ErrConflict    = errors.New("resource conflict")
	ErrTimeout     = errors.New("operation timeout")
	ErrUnavailable = errors.New("service unavailable")
)

// Kind classifies engine failures for callers
type Kind string

const (
	KindInvalidType     Kind = "invalid_type"
	KindInvalidAction   Kind = "invalid_action"
	KindInvalidLocation Kind = "invalid_location"
	KindMissingReason   Kind = "missing_reason"
	KindInvalidInput    Kind = "invalid_input"
	KindConflict        Kind = "conflict"
	KindTooFar          Kind = "too_far"
	KindAlreadyVoted    Kind = "already_voted"
	KindNotFound        Kind = "not_found"
	KindEmptySelection  Kind = "empty_selection"
	KindTerminal        Kind = "terminal"
	KindTransient       Kind = "transient"
	KindInternal        Kind = "internal"
)

// Error is the typed failure returned by the verification and lifecycle services
type Error struct {
	Kind     Kind
	Op       string
	ReportID string
	// DistanceKm is set for KindTooFar, rounded to one decimal
	DistanceKm float64
	// Missing lists unknown ids for KindNotFound in bulk operations
	Missing []string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.ReportID != "" {
		return fmt.Sprintf("%s: report %s: %s", e.Op, e.ReportID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind-only templates such as &Error{Kind: KindTooFar}
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.ReportID == ""
}

// New builds an engine error
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap builds an engine error around an underlying cause
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// TooFar reports a voter outside the proximity radius
func TooFar(op, reportID string, distanceKm float64) *Error {
	return &Error{
		Kind:       KindTooFar,
		Op:         op,
		ReportID:   reportID,
		DistanceKm: distanceKm,
		Message:    fmt.Sprintf("voter is %.1f km away", distanceKm),
	}
}

// NotFound reports a missing report id
func NotFound(op, reportID string) *Error {
	return &Error{Kind: KindNotFound, Op: op, ReportID: reportID, Err: ErrNotFound}
}

// KindOf extracts the kind from an error chain. Context deadline and
// cancellation are transient; anything unclassified is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return KindTransient
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTransient returns true if the failure is safe to retry
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// Classify turns a raw storage failure into an engine error for op
func Classify(op, reportID string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindOf(err), Op: op, ReportID: reportID, Err: err}
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns the MultiError only when it holds something
func (e *MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return *e
	}
	return nil
}

// DatabaseError represents a database-related error
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}

// FeedError represents a failure querying the external incident feed
type FeedError struct {
	Area  string
	Stage string
	Err   error
}

func (e FeedError) Error() string {
	return fmt.Sprintf("feed error for %s at stage %s: %v", e.Area, e.Stage, e.Err)
}

func (e FeedError) Unwrap() error {
	return e.Err
}
