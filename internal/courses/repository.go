// Package courses reads the schedule and admission data that gate live sessions.
// Rows are written by course configuration and enrollment; the live core only books seats.
package courses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/liveclass/internal/models"
)

// Upcoming is a live-capable course a user is admitted to, with its next schedule entry.
type Upcoming struct {
	CourseID    uuid.UUID         `json:"course_id"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Status      models.LiveStatus `json:"status"`
}

// Repository handles schedule and admission persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a courses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListSchedules returns schedule entries with scheduled_at in [from, to], earliest first.
func (r *Repository) ListSchedules(ctx context.Context, courseID uuid.UUID, from, to time.Time) ([]models.ScheduledSession, error) {
	const q = `SELECT id, course_id, scheduled_at, created_at FROM scheduled_sessions
		WHERE course_id = $1 AND scheduled_at >= $2 AND scheduled_at <= $3 ORDER BY scheduled_at ASC`
	rows, err := r.pool.Query(ctx, q, courseID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ScheduledSession
	for rows.Next() {
		var s models.ScheduledSession
		if err := rows.Scan(&s.ID, &s.CourseID, &s.ScheduledAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// AddSchedule inserts a schedule entry.
func (r *Repository) AddSchedule(ctx context.Context, s *models.ScheduledSession) error {
	const q = `INSERT INTO scheduled_sessions (id, course_id, scheduled_at) VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.CourseID, s.ScheduledAt).Scan(&s.ID, &s.CreatedAt)
}

// GetAdmission returns the admission for (course, user), or nil if none.
func (r *Repository) GetAdmission(ctx context.Context, courseID, userID uuid.UUID) (*models.Admission, error) {
	const q = `SELECT course_id, user_id, role, seat_booked, created_at FROM admissions WHERE course_id = $1 AND user_id = $2`
	var (
		a    models.Admission
		role string
	)
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&a.CourseID, &a.UserID, &role, &a.SeatBooked, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = models.AdmissionRole(role)
	return &a, nil
}

// CountSeated returns the number of participants holding a booked seat.
func (r *Repository) CountSeated(ctx context.Context, courseID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM admissions WHERE course_id = $1 AND role = $2 AND seat_booked`
	var n int
	err := r.pool.QueryRow(ctx, q, courseID, models.AdmissionParticipant).Scan(&n)
	return n, err
}

// BookSeat marks the participant's seat as booked.
func (r *Repository) BookSeat(ctx context.Context, courseID, userID uuid.UUID) error {
	const q = `UPDATE admissions SET seat_booked = TRUE WHERE course_id = $1 AND user_id = $2 AND NOT seat_booked`
	_, err := r.pool.Exec(ctx, q, courseID, userID)
	return err
}

// GrantAdmission inserts an admission (idempotent per course and user).
func (r *Repository) GrantAdmission(ctx context.Context, a *models.Admission) error {
	const q = `INSERT INTO admissions (course_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (course_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING seat_booked, created_at`
	return r.pool.QueryRow(ctx, q, a.CourseID, a.UserID, a.Role).Scan(&a.SeatBooked, &a.CreatedAt)
}

// UpcomingForUser lists live courses the user owns or is admitted to that have a
// schedule entry in [from, to], earliest first.
func (r *Repository) UpcomingForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Upcoming, error) {
	const q = `SELECT p.course_id, MIN(s.scheduled_at), p.status
		FROM course_live_profiles p
		JOIN scheduled_sessions s ON s.course_id = p.course_id AND s.scheduled_at BETWEEN $2 AND $3
		WHERE p.owner_id = $1
			OR EXISTS (SELECT 1 FROM admissions a WHERE a.course_id = p.course_id AND a.user_id = $1)
		GROUP BY p.course_id, p.status
		ORDER BY MIN(s.scheduled_at) ASC`
	rows, err := r.pool.Query(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Upcoming
	for rows.Next() {
		var (
			u      Upcoming
			status string
		)
		if err := rows.Scan(&u.CourseID, &u.ScheduledAt, &status); err != nil {
			return nil, err
		}
		u.Status = models.LiveStatus(status)
		list = append(list, u)
	}
	return list, rows.Err()
}
