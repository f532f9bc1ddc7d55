// Package access decides whether a principal may start, join or stop a course's live session.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

// Intent is what the principal is asking to do.
type Intent string

const (
	IntentStart Intent = "START"
	IntentJoin  Intent = "JOIN"
	IntentStop  Intent = "STOP"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyActive    = errors.New("live session already in progress")
	ErrNoActiveSession  = errors.New("no active live session to join")
	ErrCapacityExceeded = errors.New("maximum participants limit reached")
	ErrCourseNotFound   = errors.New("course not found")
)

// AdmissionReader reads admission records. GetAdmission returns nil, nil when none exists.
type AdmissionReader interface {
	GetAdmission(ctx context.Context, courseID, userID uuid.UUID) (*models.Admission, error)
	CountSeated(ctx context.Context, courseID uuid.UUID) (int, error)
}

// Decision is the outcome of a successful authorization.
type Decision struct {
	Intent  Intent
	IsOwner bool
	// Admission is nil for the owner.
	Admission *models.Admission
	// Reconnect is true when a participant already holds a booked seat.
	Reconnect bool
}

// Guard enforces ownership, purchase and capacity rules.
type Guard struct {
	admissions AdmissionReader
}

// NewGuard creates a guard backed by the given admission source.
func NewGuard(admissions AdmissionReader) *Guard {
	return &Guard{admissions: admissions}
}

// Authorize checks principal against profile for intent.
// The capacity read is not serialized with other joins, so concurrent joins may
// briefly over-admit by the number of racing requests.
func (g *Guard) Authorize(ctx context.Context, principal uuid.UUID, profile *models.CourseLiveProfile, intent Intent) (Decision, error) {
	if principal == uuid.Nil || profile == nil {
		return Decision{}, ErrUnauthorized
	}
	isOwner := profile.OwnerID == principal

	switch intent {
	case IntentStart:
		if !isOwner {
			return Decision{}, ErrUnauthorized
		}
		if profile.Status == models.LiveStatusActive {
			return Decision{}, ErrAlreadyActive
		}
		return Decision{Intent: intent, IsOwner: true}, nil

	case IntentStop:
		if !isOwner {
			return Decision{}, ErrUnauthorized
		}
		return Decision{Intent: intent, IsOwner: true}, nil

	case IntentJoin:
		if isOwner {
			if profile.Status != models.LiveStatusActive {
				return Decision{}, ErrNoActiveSession
			}
			return Decision{Intent: intent, IsOwner: true}, nil
		}
		return g.authorizeParticipant(ctx, principal, profile)
	}
	return Decision{}, fmt.Errorf("unknown intent %q", intent)
}

func (g *Guard) authorizeParticipant(ctx context.Context, principal uuid.UUID, profile *models.CourseLiveProfile) (Decision, error) {
	adm, err := g.admissions.GetAdmission(ctx, profile.CourseID, principal)
	if err != nil {
		return Decision{}, fmt.Errorf("get admission: %w", err)
	}
	if adm == nil {
		return Decision{}, ErrUnauthorized
	}
	if profile.Status != models.LiveStatusActive {
		return Decision{}, ErrNoActiveSession
	}
	d := Decision{Intent: IntentJoin, Admission: adm}
	if adm.Role == models.AdmissionOwner {
		return d, nil
	}
	if adm.SeatBooked {
		d.Reconnect = true
		return d, nil
	}
	if profile.Capacity != nil && *profile.Capacity > 0 {
		seated, err := g.admissions.CountSeated(ctx, profile.CourseID)
		if err != nil {
			return Decision{}, fmt.Errorf("count seated: %w", err)
		}
		if seated >= *profile.Capacity {
			return Decision{}, ErrCapacityExceeded
		}
	}
	return d, nil
}

// CanView allows the owner and any admitted principal to read course live data.
func (g *Guard) CanView(ctx context.Context, principal uuid.UUID, profile *models.CourseLiveProfile) error {
	if principal == uuid.Nil || profile == nil {
		return ErrUnauthorized
	}
	if profile.OwnerID == principal {
		return nil
	}
	adm, err := g.admissions.GetAdmission(ctx, profile.CourseID, principal)
	if err != nil {
		return fmt.Errorf("get admission: %w", err)
	}
	if adm == nil {
		return ErrUnauthorized
	}
	return nil
}
