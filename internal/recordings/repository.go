package recordings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/liveclass/internal/models"
)

// Repository handles recording reference persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a reference. A second insert for the same session is a no-op and reports created=false.
func (r *Repository) Append(ctx context.Context, ref *models.RecordingReference) (bool, error) {
	const q = `INSERT INTO recording_references (id, course_id, session_id, source_url, s3_key, title, session_ended_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id, created_at`
	rows, err := r.pool.Query(ctx, q, ref.CourseID, ref.SessionID, ref.SourceURL, ref.S3Key, ref.Title, ref.SessionEndedAt)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	created := false
	for rows.Next() {
		if err := rows.Scan(&ref.ID, &ref.CreatedAt); err != nil {
			return false, err
		}
		created = true
	}
	return created, rows.Err()
}

// ListByCourse returns all references for a course, newest first.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.RecordingReference, error) {
	const q = `SELECT id, course_id, session_id, source_url, COALESCE(s3_key,''), title, session_ended_at, created_at
		FROM recording_references WHERE course_id = $1 ORDER BY session_ended_at DESC`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RecordingReference
	for rows.Next() {
		var ref models.RecordingReference
		if err := rows.Scan(&ref.ID, &ref.CourseID, &ref.SessionID, &ref.SourceURL, &ref.S3Key, &ref.Title, &ref.SessionEndedAt, &ref.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ref)
	}
	return list, rows.Err()
}
