// Package schedule decides whether a scheduled live class may be started now.
package schedule

import (
	"time"

	"github.com/aura-webinar/liveclass/internal/models"
)

const (
	// DefaultLead is how early before scheduledAt a start is accepted.
	DefaultLead = 10 * time.Minute
	// DefaultGrace is how long after scheduledAt a schedule entry stays startable.
	DefaultGrace = 2 * time.Hour
	// DefaultLookahead bounds how far in the future a candidate entry is searched.
	DefaultLookahead = 2 * time.Hour
)

// Window holds the start-window bounds. Zero fields fall back to the defaults.
type Window struct {
	Lead      time.Duration
	Grace     time.Duration
	Lookahead time.Duration
}

// DefaultWindow returns the 10m lead / 2h grace / 2h lookahead window.
func DefaultWindow() Window {
	return Window{Lead: DefaultLead, Grace: DefaultGrace, Lookahead: DefaultLookahead}
}

func (w Window) normalized() Window {
	if w.Lead <= 0 {
		w.Lead = DefaultLead
	}
	if w.Grace <= 0 {
		w.Grace = DefaultGrace
	}
	if w.Lookahead <= 0 {
		w.Lookahead = DefaultLookahead
	}
	return w
}

// IsStartEligible reports whether scheduledAt - lead <= now. There is no upper bound here;
// stale entries are excluded by the candidate search range instead.
func (w Window) IsStartEligible(now, scheduledAt time.Time) bool {
	w = w.normalized()
	return !now.Before(scheduledAt.Add(-w.Lead))
}

// SearchRange returns the inclusive [from, to] range of scheduledAt values that may gate a start at now.
func (w Window) SearchRange(now time.Time) (from, to time.Time) {
	w = w.normalized()
	return now.Add(-w.Grace), now.Add(w.Lookahead)
}

// Candidate picks the earliest entry inside SearchRange(now). ok is false when none qualifies.
func (w Window) Candidate(now time.Time, sessions []models.ScheduledSession) (models.ScheduledSession, bool) {
	from, to := w.SearchRange(now)
	var (
		best  models.ScheduledSession
		found bool
	)
	for _, s := range sessions {
		if s.ScheduledAt.Before(from) || s.ScheduledAt.After(to) {
			continue
		}
		if !found || s.ScheduledAt.Before(best.ScheduledAt) {
			best = s
			found = true
		}
	}
	return best, found
}

// Eligible combines Candidate and IsStartEligible.
func (w Window) Eligible(now time.Time, sessions []models.ScheduledSession) (models.ScheduledSession, bool) {
	s, ok := w.Candidate(now, sessions)
	if !ok || !w.IsStartEligible(now, s.ScheduledAt) {
		return models.ScheduledSession{}, false
	}
	return s, true
}
