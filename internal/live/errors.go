package live

import (
	"errors"

	"github.com/aura-webinar/liveclass/internal/access"
)

// Errors returned by the orchestrator. Authorization errors are shared with the access guard.
var (
	ErrUnauthorized       = access.ErrUnauthorized
	ErrAlreadyActive      = access.ErrAlreadyActive
	ErrNoActiveSession    = access.ErrNoActiveSession
	ErrCapacityExceeded   = access.ErrCapacityExceeded
	ErrCourseNotFound     = access.ErrCourseNotFound
	ErrNoEligibleSchedule = errors.New("no scheduled session within the start window")
	ErrCredentialIssuance = errors.New("credential issuance failed")
	ErrInvalidCapacity    = errors.New("maxParticipants must not be negative")
	ErrStopContended      = errors.New("live session changed concurrently, retry the stop")
)
