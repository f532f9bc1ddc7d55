// Package recordings persists one recording reference per completed live session.
package recordings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/pkg/queue"
)

// ErrCommitFailed marks a recording that could not be persisted. The session stop it
// belongs to has already taken effect.
var ErrCommitFailed = errors.New("recording commit failed")

// Store is the append-only recording reference store.
type Store interface {
	Append(ctx context.Context, ref *models.RecordingReference) (created bool, err error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.RecordingReference, error)
}

// Locator derives the default recording location for a session.
type Locator interface {
	RecordingLocation(courseID, sessionID string) (url, key string)
}

// RetryQueue accepts commits that failed inline.
type RetryQueue interface {
	EnqueueRecordingCommit(ctx context.Context, payload queue.RecordingCommitPayload) error
}

// CommitRequest describes the recording of a stopped session.
type CommitRequest struct {
	CourseID  uuid.UUID
	SessionID uuid.UUID
	SourceURL string
	Title     string
	EndedAt   time.Time
}

// Finalizer commits recording references.
type Finalizer struct {
	store   Store
	locator Locator
	retry   RetryQueue
	timeout time.Duration
	logger  *zap.Logger
}

// NewFinalizer creates a finalizer. locator and retry may be nil.
func NewFinalizer(store Store, locator Locator, retry RetryQueue, timeout time.Duration, logger *zap.Logger) *Finalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Finalizer{store: store, locator: locator, retry: retry, timeout: timeout, logger: logger}
}

// DefaultTitle is used when the caller provides none.
func DefaultTitle(endedAt time.Time) string {
	return "Live Session - " + endedAt.Format("2006-01-02")
}

// Commit appends the reference for req. On failure the commit is handed to the retry
// queue (when configured) and an error wrapping ErrCommitFailed is returned.
func (f *Finalizer) Commit(ctx context.Context, req CommitRequest) (*models.RecordingReference, error) {
	ref := f.build(req)
	err := f.append(ctx, ref)
	if err == nil {
		return ref, nil
	}

	if f.retry != nil {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		if qerr := f.retry.EnqueueRecordingCommit(qctx, payloadFor(ref)); qerr != nil {
			f.logger.Error("enqueue recording commit failed", zap.Error(qerr), zap.String("session_id", ref.SessionID.String()))
		}
	}
	return ref, fmt.Errorf("%w: %v", ErrCommitFailed, err)
}

// Replay commits a queued payload. Used by the retry worker; duplicates are absorbed by the store.
func (f *Finalizer) Replay(ctx context.Context, p queue.RecordingCommitPayload) error {
	return f.append(ctx, &models.RecordingReference{
		CourseID:       p.CourseID,
		SessionID:      p.SessionID,
		SourceURL:      p.SourceURL,
		S3Key:          p.S3Key,
		Title:          p.Title,
		SessionEndedAt: p.EndedAt,
	})
}

// List returns the references of a course.
func (f *Finalizer) List(ctx context.Context, courseID uuid.UUID) ([]models.RecordingReference, error) {
	return f.store.ListByCourse(ctx, courseID)
}

func (f *Finalizer) build(req CommitRequest) *models.RecordingReference {
	ref := &models.RecordingReference{
		CourseID:       req.CourseID,
		SessionID:      req.SessionID,
		SourceURL:      req.SourceURL,
		Title:          req.Title,
		SessionEndedAt: req.EndedAt,
	}
	if ref.Title == "" {
		ref.Title = DefaultTitle(req.EndedAt)
	}
	if ref.SourceURL == "" && f.locator != nil {
		ref.SourceURL, ref.S3Key = f.locator.RecordingLocation(req.CourseID.String(), req.SessionID.String())
	}
	return ref
}

func (f *Finalizer) append(ctx context.Context, ref *models.RecordingReference) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	created, err := f.store.Append(ctx, ref)
	if err != nil {
		return err
	}
	if !created {
		f.logger.Info("recording already committed", zap.String("session_id", ref.SessionID.String()))
		return nil
	}
	f.logger.Info("recording committed",
		zap.String("course_id", ref.CourseID.String()),
		zap.String("session_id", ref.SessionID.String()),
		zap.String("source_url", ref.SourceURL),
	)
	return nil
}

func payloadFor(ref *models.RecordingReference) queue.RecordingCommitPayload {
	return queue.RecordingCommitPayload{
		CourseID:  ref.CourseID,
		SessionID: ref.SessionID,
		SourceURL: ref.SourceURL,
		S3Key:     ref.S3Key,
		Title:     ref.Title,
		EndedAt:   ref.SessionEndedAt,
	}
}
