package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingReference points at the recording of one completed live session.
// Append-only; SessionID is unique.
type RecordingReference struct {
	ID             uuid.UUID `json:"id"`
	CourseID       uuid.UUID `json:"course_id"`
	SessionID      uuid.UUID `json:"session_id"`
	SourceURL      string    `json:"source_url"`
	S3Key          string    `json:"s3_key,omitempty"`
	Title          string    `json:"title"`
	SessionEndedAt time.Time `json:"session_ended_at"`
	CreatedAt      time.Time `json:"created_at"`
}
