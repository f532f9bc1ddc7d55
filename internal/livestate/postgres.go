package livestate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/liveclass/internal/models"
)

const profileColumns = `course_id, owner_id, status, channel_id, credential_token, credential_role, credential_expires_at,
	capacity, next_live_date, session_id, started_at, version, created_at, updated_at`

// Repository is the PostgreSQL Store. Transition is an optimistic update conditioned on
// the previously observed status and row version.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a live profile repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get implements Store.
func (r *Repository) Get(ctx context.Context, courseID uuid.UUID) (*models.CourseLiveProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM course_live_profiles WHERE course_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create implements Store.
func (r *Repository) Create(ctx context.Context, p *models.CourseLiveProfile) error {
	const q = `INSERT INTO course_live_profiles (course_id, owner_id, status, channel_id, capacity, next_live_date, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		ON CONFLICT (course_id) DO NOTHING
		RETURNING version, created_at, updated_at`
	p.Status = models.LiveStatusIdle
	p.Credential = nil
	err := r.pool.QueryRow(ctx, q, p.CourseID, p.OwnerID, p.Status, nullString(p.ChannelID), p.Capacity, p.NextLiveDate).
		Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("live profile for course %s already exists", p.CourseID)
	}
	return err
}

// Transition implements Store.
func (r *Repository) Transition(ctx context.Context, courseID uuid.UUID, expected models.LiveStatus, mutate Mutation) (*models.CourseLiveProfile, error) {
	cur, err := r.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if cur.Status != expected {
		return nil, ErrConflict
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	var (
		token, role *string
		expiresAt   any
	)
	if next.Credential != nil {
		t, rl := next.Credential.Token, string(next.Credential.Role)
		token, role, expiresAt = &t, &rl, next.Credential.ExpiresAt
	}

	const q = `UPDATE course_live_profiles SET
		status = $1, channel_id = $2, credential_token = $3, credential_role = $4, credential_expires_at = $5,
		capacity = $6, next_live_date = $7, session_id = $8, started_at = $9,
		version = version + 1, updated_at = NOW()
		WHERE course_id = $10 AND status = $11 AND version = $12
		RETURNING version, updated_at`
	err = r.pool.QueryRow(ctx, q,
		next.Status, nullString(next.ChannelID), token, role, expiresAt,
		next.Capacity, next.NextLiveDate, next.SessionID, next.StartedAt,
		courseID, expected, cur.Version,
	).Scan(&next.Version, &next.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update live profile: %w", err)
	}
	return next, nil
}

// CountActive implements Store.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM course_live_profiles WHERE status = $1`, models.LiveStatusActive).Scan(&n)
	return n, err
}

func scanProfile(row pgx.Row) (*models.CourseLiveProfile, error) {
	var (
		p             models.CourseLiveProfile
		status        string
		channelID     *string
		token, role   *string
		credExpiresAt *time.Time
	)
	if err := row.Scan(&p.CourseID, &p.OwnerID, &status, &channelID, &token, &role, &credExpiresAt,
		&p.Capacity, &p.NextLiveDate, &p.SessionID, &p.StartedAt, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.LiveStatus(status)
	if channelID != nil {
		p.ChannelID = *channelID
	}
	if token != nil && credExpiresAt != nil {
		p.Credential = &models.Credential{Token: *token, ExpiresAt: *credExpiresAt}
		if role != nil {
			p.Credential.Role = models.CredentialRole(*role)
		}
	}
	return &p, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
