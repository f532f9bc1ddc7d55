package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aura-webinar/liveclass/internal/models"
)

func TestWindow_IsStartEligible(t *testing.T) {
	w := DefaultWindow()
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"eleven minutes early", at.Add(-11 * time.Minute), false},
		{"exactly ten minutes early", at.Add(-10 * time.Minute), true},
		{"nine minutes early", at.Add(-9 * time.Minute), true},
		{"on time", at, true},
		{"far past has no upper bound", at.Add(48 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.IsStartEligible(tt.now, at))
		})
	}
}

func TestWindow_Eligible(t *testing.T) {
	w := DefaultWindow()
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	sessions := []models.ScheduledSession{{ScheduledAt: at}}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"T-11m", at.Add(-11 * time.Minute), false},
		{"T-9m", at.Add(-9 * time.Minute), true},
		{"T+1h59m", at.Add(time.Hour + 59*time.Minute), true},
		{"T+2h1m", at.Add(2*time.Hour + time.Minute), false},
		{"three hours early", at.Add(-3 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := w.Eligible(tt.now, sessions)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestWindow_CandidatePicksEarliestInRange(t *testing.T) {
	w := DefaultWindow()
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	sessions := []models.ScheduledSession{
		{ScheduledAt: now.Add(90 * time.Minute)},
		{ScheduledAt: now.Add(-30 * time.Minute)},
		{ScheduledAt: now.Add(-3 * time.Hour)},
		{ScheduledAt: now.Add(5 * time.Hour)},
	}

	got, ok := w.Candidate(now, sessions)
	assert.True(t, ok)
	assert.Equal(t, now.Add(-30*time.Minute), got.ScheduledAt)
}

func TestWindow_FutureOnlyCandidateIsNotEligible(t *testing.T) {
	w := DefaultWindow()
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	sessions := []models.ScheduledSession{{ScheduledAt: now.Add(time.Hour)}}

	_, ok := w.Candidate(now, sessions)
	assert.True(t, ok)
	_, ok = w.Eligible(now, sessions)
	assert.False(t, ok)
}

func TestWindow_ZeroValueUsesDefaults(t *testing.T) {
	var w Window
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	from, to := w.SearchRange(now)
	assert.Equal(t, now.Add(-DefaultGrace), from)
	assert.Equal(t, now.Add(DefaultLookahead), to)
}
