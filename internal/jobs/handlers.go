package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/realty/internal/geo"
	"github.com/garnizeh/realty/internal/notify"
	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

// Job types.
const (
	TypeEmailLead       = "email.lead"
	TypeEmailSubmission = "email.submission"
	TypeEmailDecision   = "email.decision"
	TypeGeoDistances    = "geo.distances"
)

// Priorities; lower runs first.
const (
	PriorityEmail = 10
	PriorityGeo   = 50
)

// Notifier sends the transactional emails.
type Notifier interface {
	LeadReceived(ctx context.Context, e notify.LeadEmail) error
	SubmissionReceived(ctx context.Context, e notify.SubmissionEmail) error
	ListingDecision(ctx context.Context, e notify.DecisionEmail) error
}

// Distancer resolves landmark distances from a point.
type Distancer interface {
	Distances(ctx context.Context, origin geo.Point, landmarks []models.Landmark, area string) []models.Landmark
}

// DistancesPayload asks for a project's landmarks to be recomputed.
type DistancesPayload struct {
	ProjectID int64 `json:"project_id"`
}

// Handlers returns the handler table for the domain job types. A nil
// distancer leaves geo.distances jobs as no-ops.
func Handlers(n Notifier, projects repository.ProjectRepo, d Distancer) map[string]Handler {
	return map[string]Handler{
		TypeEmailLead: func(ctx context.Context, j *Job) error {
			var e notify.LeadEmail
			if err := json.Unmarshal(j.Payload, &e); err != nil {
				return fmt.Errorf("decode lead email: %w", err)
			}
			return n.LeadReceived(ctx, e)
		},
		TypeEmailSubmission: func(ctx context.Context, j *Job) error {
			var e notify.SubmissionEmail
			if err := json.Unmarshal(j.Payload, &e); err != nil {
				return fmt.Errorf("decode submission email: %w", err)
			}
			return n.SubmissionReceived(ctx, e)
		},
		TypeEmailDecision: func(ctx context.Context, j *Job) error {
			var e notify.DecisionEmail
			if err := json.Unmarshal(j.Payload, &e); err != nil {
				return fmt.Errorf("decode decision email: %w", err)
			}
			return n.ListingDecision(ctx, e)
		},
		TypeGeoDistances: func(ctx context.Context, j *Job) error {
			var p DistancesPayload
			if err := json.Unmarshal(j.Payload, &p); err != nil {
				return fmt.Errorf("decode distances: %w", err)
			}
			if d == nil {
				return nil
			}
			_, err := RefreshDistances(ctx, projects, d, p.ProjectID)
			return err
		},
	}
}

// ErrNoCoordinates is returned when a project has no location to route from.
var ErrNoCoordinates = errors.New("project has no coordinates")

// RefreshDistances recomputes a project's landmark distances and stores the
// ones that resolved.
func RefreshDistances(ctx context.Context, projects repository.ProjectRepo, d Distancer, projectID int64) ([]models.Landmark, error) {
	p, err := projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, repository.ErrNotFound
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, ErrNoCoordinates
	}
	if len(p.Landmarks) == 0 {
		return nil, nil
	}

	area := p.City
	if area == "" {
		area = p.Location
	}
	got := d.Distances(ctx, geo.Point{Lat: *p.Latitude, Lng: *p.Longitude}, p.Landmarks, area)
	if err := projects.UpdateLandmarks(ctx, p.ID, got); err != nil {
		return nil, err
	}
	logger.Info("landmark distances refreshed", slog.Int64("project_id", p.ID), slog.Int("resolved", len(got)), slog.Int("requested", len(p.Landmarks)))
	return got, nil
}

// EnqueueEmail queues a single-attempt email job; failures are logged and
// dead-lettered without retry. Enqueue errors are only logged so the
// calling request still succeeds.
func EnqueueEmail(ctx context.Context, q Enqueuer, typ string, payload any) {
	if q == nil {
		return
	}
	if _, err := q.Enqueue(ctx, typ, payload, PriorityEmail, 1); err != nil {
		logger.Error("enqueue email", slog.String("type", typ), slog.Any("err", err))
	}
}

// EnqueueDistances queues a landmark distance refresh for a project.
func EnqueueDistances(ctx context.Context, q Enqueuer, projectID int64) {
	if q == nil {
		return
	}
	if _, err := q.Enqueue(ctx, TypeGeoDistances, DistancesPayload{ProjectID: projectID}, PriorityGeo, 1); err != nil {
		logger.Error("enqueue distances", slog.Int64("project_id", projectID), slog.Any("err", err))
	}
}
