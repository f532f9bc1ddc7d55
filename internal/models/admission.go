package models

import (
	"time"

	"github.com/google/uuid"
)

// AdmissionRole is the role granted by an admission record.
type AdmissionRole string

const (
	AdmissionOwner       AdmissionRole = "OWNER"
	AdmissionParticipant AdmissionRole = "PARTICIPANT"
)

// Admission grants a principal the right to join a course's live sessions.
// Only SeatBooked changes after creation.
type Admission struct {
	CourseID   uuid.UUID     `json:"course_id"`
	UserID     uuid.UUID     `json:"user_id"`
	Role       AdmissionRole `json:"role"`
	SeatBooked bool          `json:"seat_booked"`
	CreatedAt  time.Time     `json:"created_at"`
}
