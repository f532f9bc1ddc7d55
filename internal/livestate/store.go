// Package livestate is the single source of truth for a course's live-session state.
// All mutations go through Transition, a compare-and-set keyed by the observed status.
package livestate

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

var (
	// ErrNotFound is returned when no live profile exists for the course.
	ErrNotFound = errors.New("live profile not found")
	// ErrConflict is returned when the stored status no longer matches the expected one.
	ErrConflict = errors.New("live profile changed concurrently")
)

// Mutation edits a private copy of the profile. Returning an error aborts the transition.
type Mutation func(p *models.CourseLiveProfile) error

// Store persists course live profiles.
type Store interface {
	Get(ctx context.Context, courseID uuid.UUID) (*models.CourseLiveProfile, error)
	Create(ctx context.Context, p *models.CourseLiveProfile) error
	// Transition applies mutate iff the stored status equals expected and nothing else
	// changed the row since it was read. Exactly one of several racing callers wins;
	// the others get ErrConflict.
	Transition(ctx context.Context, courseID uuid.UUID, expected models.LiveStatus, mutate Mutation) (*models.CourseLiveProfile, error)
	CountActive(ctx context.Context) (int, error)
}
