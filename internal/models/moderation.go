package models

import (
	"fmt"
	"strings"
	"time"
)

// EntityType names what a moderation action was applied to
type EntityType string

const (
	EntityReport EntityType = "report"
	EntityUser   EntityType = "user"
)

// ModerationDecision is a single-report admin verdict
type ModerationDecision string

const (
	DecisionApprove ModerationDecision = "approve"
	DecisionRemove  ModerationDecision = "remove"
)

// ParseModerationDecision accepts approve and remove
func ParseModerationDecision(s string) (ModerationDecision, error) {
	switch d := ModerationDecision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionApprove, DecisionRemove:
		return d, nil
	}
	return "", fmt.Errorf("unknown moderation action %q", s)
}

// BulkAction is a moderation action applied to a set of reports
type BulkAction string

const (
	BulkApproveText  BulkAction = "approve_text"
	BulkApproveImage BulkAction = "approve_image"
	BulkApproveAll   BulkAction = "approve_all"
	BulkRemove       BulkAction = "remove"
)

// ParseBulkAction accepts the four bulk actions
func ParseBulkAction(s string) (BulkAction, error) {
	switch a := BulkAction(strings.ToLower(strings.TrimSpace(s))); a {
	case BulkApproveText, BulkApproveImage, BulkApproveAll, BulkRemove:
		return a, nil
	}
	return "", fmt.Errorf("unknown bulk action %q", s)
}

// ModerationAction is an append-only audit record
type ModerationAction struct {
	ID            string     `json:"id" db:"id"`
	EntityType    EntityType `json:"entity_type" db:"entity_type"`
	EntityID      string     `json:"entity_id" db:"entity_id"`
	Action        string     `json:"action" db:"action"`
	Reason        string     `json:"reason,omitempty" db:"reason"`
	InternalNotes string     `json:"internal_notes,omitempty" db:"internal_notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ModerationQuery filters the audit log
type ModerationQuery struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Since      time.Time  `json:"since"`
	Limit      int        `json:"limit"`
}

// Matches checks if an action matches the query criteria
func (q ModerationQuery) Matches(a ModerationAction) bool {
	if q.EntityType != "" && q.EntityType != a.EntityType {
		return false
	}
	if q.EntityID != "" && q.EntityID != a.EntityID {
		return false
	}
	if !q.Since.IsZero() && a.CreatedAt.Before(q.Since) {
		return false
	}
	return true
}
