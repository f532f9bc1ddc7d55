package models

import (
	"time"

	"github.com/google/uuid"
)

// LiveStatus is the live-session state of a course.
type LiveStatus string

const (
	LiveStatusIdle   LiveStatus = "IDLE"
	LiveStatusActive LiveStatus = "ACTIVE"
)

// Valid reports whether s is a known status.
func (s LiveStatus) Valid() bool {
	return s == LiveStatusIdle || s == LiveStatusActive
}

// CredentialRole scopes an RTC credential.
type CredentialRole string

const (
	RolePublisher  CredentialRole = "PUBLISHER"
	RoleSubscriber CredentialRole = "SUBSCRIBER"
)

// Credential is a short-lived, role-scoped RTC access token.
type Credential struct {
	Token     string         `json:"token"`
	Role      CredentialRole `json:"role"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// CourseLiveProfile is the durable live-session record of one course.
// Credential is set iff Status is ACTIVE; ChannelID survives stop/restart.
type CourseLiveProfile struct {
	CourseID     uuid.UUID   `json:"course_id"`
	OwnerID      uuid.UUID   `json:"owner_id"`
	Status       LiveStatus  `json:"status"`
	ChannelID    string      `json:"channel_id,omitempty"`
	Credential   *Credential `json:"-"`
	Capacity     *int        `json:"capacity,omitempty"`
	NextLiveDate *time.Time  `json:"next_live_date,omitempty"`
	SessionID    *uuid.UUID  `json:"session_id,omitempty"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	Version      int64       `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (p *CourseLiveProfile) Clone() *CourseLiveProfile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Credential != nil {
		c := *p.Credential
		cp.Credential = &c
	}
	if p.Capacity != nil {
		n := *p.Capacity
		cp.Capacity = &n
	}
	if p.NextLiveDate != nil {
		t := *p.NextLiveDate
		cp.NextLiveDate = &t
	}
	if p.SessionID != nil {
		id := *p.SessionID
		cp.SessionID = &id
	}
	if p.StartedAt != nil {
		t := *p.StartedAt
		cp.StartedAt = &t
	}
	return &cp
}

// LiveStatusView is the poll-facing projection of a profile.
type LiveStatusView struct {
	CourseID         uuid.UUID  `json:"courseId"`
	Status           LiveStatus `json:"status"`
	ChannelID        string     `json:"channelId,omitempty"`
	IsLive           bool       `json:"isLive"`
	NextLiveDate     *time.Time `json:"nextLiveDate,omitempty"`
	ParticipantCount int        `json:"participantCount"`
	Capacity         *int       `json:"capacity,omitempty"`
}
