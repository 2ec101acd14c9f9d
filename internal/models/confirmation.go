package models

import (
	"fmt"
	"strings"
	"time"
)

// ConfirmationType is the kind of vote cast on a report
type ConfirmationType string

const (
	ConfirmationConfirm ConfirmationType = "confirm"
	ConfirmationDeny    ConfirmationType = "deny"
	ConfirmationEnded   ConfirmationType = "ended"
)

// ParseConfirmationType accepts only confirm, deny and ended
func ParseConfirmationType(s string) (ConfirmationType, error) {
	switch c := ConfirmationType(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfirmationConfirm, ConfirmationDeny, ConfirmationEnded:
		return c, nil
	}
	return "", fmt.Errorf("unknown confirmation type %q", s)
}

// Confirmation is one user's proximity-gated vote on a report.
// Rows are write-once.
type Confirmation struct {
	ID               string           `json:"id" db:"id"`
	ReportID         string           `json:"report_id" db:"report_id"`
	UserID           *string          `json:"user_id,omitempty" db:"user_id"`
	Latitude         float64          `json:"latitude" db:"latitude"`
	Longitude        float64          `json:"longitude" db:"longitude"`
	DistanceKm       float64          `json:"distance_km" db:"distance_km"`
	ConfirmationType ConfirmationType `json:"confirmation_type" db:"confirmation_type"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// Anonymous reports whether the vote carries no user id
func (c Confirmation) Anonymous() bool {
	return c.UserID == nil || *c.UserID == ""
}

// VoteDelta is the change a vote applies to its report
type VoteDelta struct {
	Confirmations int  `json:"confirmations"`
	Denials       int  `json:"denials"`
	End           bool `json:"end"`
}

// DeltaFor maps a confirmation type to the counter/status change it causes
func DeltaFor(t ConfirmationType) VoteDelta {
	switch t {
	case ConfirmationConfirm:
		return VoteDelta{Confirmations: 1}
	case ConfirmationDeny:
		return VoteDelta{Denials: 1}
	case ConfirmationEnded:
		return VoteDelta{End: true}
	}
	return VoteDelta{}
}
