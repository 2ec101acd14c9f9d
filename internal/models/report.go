package models

import (
	"fmt"
	"strings"
	"time"
)

// IncidentType is the kind of incident a report describes
type IncidentType string

const (
	IncidentRobbery    IncidentType = "robbery"
	IncidentAttack     IncidentType = "attack"
	IncidentGunshots   IncidentType = "gunshots"
	IncidentKidnapping IncidentType = "kidnapping"
	IncidentCheckpoint IncidentType = "checkpoint"
	IncidentFire       IncidentType = "fire"
	IncidentAccident   IncidentType = "accident"
	IncidentTraffic    IncidentType = "traffic"
	IncidentSuspicious IncidentType = "suspicious"
	IncidentOther      IncidentType = "other"
)

// ParseIncidentType rejects anything outside the fixed enumeration
func ParseIncidentType(s string) (IncidentType, error) {
	switch t := IncidentType(strings.ToLower(strings.TrimSpace(s))); t {
	case IncidentRobbery, IncidentAttack, IncidentGunshots, IncidentKidnapping,
		IncidentCheckpoint, IncidentFire, IncidentAccident, IncidentTraffic,
		IncidentSuspicious, IncidentOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown incident type %q", s)
}

// Status is the operational lifecycle state of a report
type Status string

const (
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusRemoved Status = "removed"
)

// ModerationStatus is the overall admin verdict on a report
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRemoved  ModerationStatus = "removed"
)

// ContentStatus is the review state of the report text or its image
type ContentStatus string

const (
	ContentNone     ContentStatus = "none"
	ContentPending  ContentStatus = "pending"
	ContentFlagged  ContentStatus = "flagged"
	ContentApproved ContentStatus = "approved"
)

// ParseContentStatus parses a verdict written by an external content checker
func ParseContentStatus(s string) (ContentStatus, error) {
	switch c := ContentStatus(strings.ToLower(strings.TrimSpace(s))); c {
	case ContentNone, ContentPending, ContentFlagged, ContentApproved:
		return c, nil
	case "":
		return ContentNone, nil
	}
	return "", fmt.Errorf("unknown content status %q", s)
}

// Report represents a single observed incident
type Report struct {
	ID                    string           `json:"id" db:"id"`
	IncidentType          IncidentType     `json:"incident_type" db:"incident_type"`
	AreaName              string           `json:"area_name" db:"area_name"`
	AreaSlug              string           `json:"area_slug" db:"area_slug"`
	State                 string           `json:"state" db:"state"`
	Landmark              string           `json:"landmark,omitempty" db:"landmark"`
	Description           string           `json:"description,omitempty" db:"description"`
	Location              string           `json:"location,omitempty" db:"location"`
	Latitude              float64          `json:"latitude" db:"latitude"`
	Longitude             float64          `json:"longitude" db:"longitude"`
	Status                Status           `json:"status" db:"status"`
	ModerationStatus      ModerationStatus `json:"moderation_status" db:"moderation_status"`
	TextModerationStatus  ContentStatus    `json:"text_moderation_status" db:"text_moderation_status"`
	ImageModerationStatus ContentStatus    `json:"image_moderation_status" db:"image_moderation_status"`
	RemovalReason         string           `json:"removal_reason,omitempty" db:"removal_reason"`
	PhotoURL              string           `json:"photo_url,omitempty" db:"photo_url"`
	PhotoThumbURL         string           `json:"photo_thumb_url,omitempty" db:"photo_thumb_url"`
	PhotoPreviewURL       string           `json:"photo_preview_url,omitempty" db:"photo_preview_url"`
	ConfirmationCount     int              `json:"confirmation_count" db:"confirmation_count"`
	DenialCount           int              `json:"denial_count" db:"denial_count"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	EndedAt               *time.Time       `json:"ended_at,omitempty" db:"ended_at"`
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`
}

// HasPhoto reports whether an image has already been attached
func (r Report) HasPhoto() bool {
	return r.PhotoURL != ""
}

// Consistent checks the cross-axis invariant between status and moderation
func (r Report) Consistent() bool {
	if r.Status == StatusRemoved {
		return r.ModerationStatus == ModerationRemoved && r.RemovalReason != ""
	}
	return true
}

// NewReport is the caller input for creating a report
type NewReport struct {
	IncidentType string  `json:"incident_type"`
	AreaName     string  `json:"area_name"`
	AreaSlug     string  `json:"area_slug"`
	State        string  `json:"state"`
	Landmark     string  `json:"landmark"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	// TextVerdict is the external content check result, empty means none
	TextVerdict string `json:"text_verdict,omitempty"`
}

// PhotoSet holds the urls produced by the upload pipeline
type PhotoSet struct {
	URL        string `json:"photo_url"`
	ThumbURL   string `json:"photo_thumb_url"`
	PreviewURL string `json:"photo_preview_url"`
}
