package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduledSession is one planned live class of a course.
type ScheduledSession struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}
