// Package verification gates community votes on reports by proximity
// and voter uniqueness.
package verification

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/incidentwatch/internal/errors"
	"github.com/rajasatyajit/incidentwatch/internal/geo"
	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/metrics"
	"github.com/rajasatyajit/incidentwatch/internal/models"
	"github.com/rajasatyajit/incidentwatch/pkg/utils"
)

// DefaultRadiusKm is how close a voter must be to the reported incident
const DefaultRadiusKm = 3.0

// Reports is what the gate needs from the report lifecycle
type Reports interface {
	Get(ctx context.Context, id string) (*models.Report, error)
	HasVoted(ctx context.Context, reportID, userID string) (bool, error)
	RecordVote(ctx context.Context, c *models.Confirmation) (*models.Report, error)
	Now() time.Time
	NewID() string
}

// Vote is a caller's request to confirm, deny or end a report
type Vote struct {
	ReportID string    `json:"report_id"`
	Voter    geo.Point `json:"voter"`
	// VoterID is optional; anonymous votes skip the uniqueness check
	VoterID string `json:"voter_id,omitempty"`
	Type    string `json:"confirmation_type"`
}

// Outcome is a stored vote and the report after its delta was applied
type Outcome struct {
	Confirmation models.Confirmation `json:"confirmation"`
	Report       models.Report       `json:"report"`
	DistanceKm   float64             `json:"distance_km"`
}

// Gate admits votes that pass the type, proximity and uniqueness checks
type Gate struct {
	reports  Reports
	radiusKm float64
}

// NewGate creates a gate; a non-positive radius falls back to DefaultRadiusKm
func NewGate(reports Reports, radiusKm float64) *Gate {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &Gate{reports: reports, radiusKm: radiusKm}
}

// RadiusKm returns the proximity radius in force
func (g *Gate) RadiusKm() float64 { return g.radiusKm }

// CastVote validates v against a freshly loaded report and records it.
// Checks run in order: vote type, voter coordinates, report existence,
// distance, then duplicate voter. The store's unique index is the final
// word on duplicates when two votes race.
func (g *Gate) CastVote(ctx context.Context, v Vote) (*Outcome, error) {
	out, err := g.castVote(ctx, v)
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	metrics.RecordVote(strings.ToLower(strings.TrimSpace(v.Type)), outcome)
	return out, err
}

func (g *Gate) castVote(ctx context.Context, v Vote) (*Outcome, error) {
	const op = "cast_vote"

	ct, err := models.ParseConfirmationType(v.Type)
	if err != nil {
		return nil, &apperrors.Error{Kind: apperrors.KindInvalidType, Op: op, ReportID: v.ReportID, Err: err}
	}
	if !v.Voter.Valid() {
		return nil, &apperrors.Error{Kind: apperrors.KindInvalidLocation, Op: op, ReportID: v.ReportID, Message: "voter location out of range"}
	}

	report, err := g.reports.Get(ctx, v.ReportID)
	if err != nil {
		return nil, err
	}

	d := geo.Distance(v.Voter, geo.Point{Lat: report.Latitude, Lng: report.Longitude})
	if d > g.radiusKm {
		logger.ForReport(ctx, report.ID).Debug("Vote rejected", "reason", "too_far", "distance_km", utils.RoundTo(d, 2))
		return nil, apperrors.TooFar(op, report.ID, utils.RoundTo(d, 1))
	}

	voterID := strings.TrimSpace(v.VoterID)
	if voterID != "" {
		voted, err := g.reports.HasVoted(ctx, report.ID, voterID)
		if err != nil {
			return nil, err
		}
		if voted {
			return nil, &apperrors.Error{Kind: apperrors.KindAlreadyVoted, Op: op, ReportID: report.ID, Message: "user already voted on this report"}
		}
	}

	c := models.Confirmation{
		ID:               g.reports.NewID(),
		ReportID:         report.ID,
		Latitude:         v.Voter.Lat,
		Longitude:        v.Voter.Lng,
		DistanceKm:       utils.RoundTo(d, 2),
		ConfirmationType: ct,
		CreatedAt:        g.reports.Now(),
	}
	if voterID != "" {
		c.UserID = &voterID
	}

	updated, err := g.reports.RecordVote(ctx, &c)
	if err != nil {
		return nil, err
	}
	logger.ForReport(ctx, report.ID).Info("Vote recorded",
		"confirmation_type", ct, "distance_km", c.DistanceKm, "anonymous", c.Anonymous())

	return &Outcome{Confirmation: c, Report: *updated, DistanceKm: c.DistanceKm}, nil
}
