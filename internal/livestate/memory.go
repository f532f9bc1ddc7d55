package livestate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

// MemoryStore is a single-process Store serialized by a mutex. Used for local runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.CourseLiveProfile
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[uuid.UUID]*models.CourseLiveProfile)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, courseID uuid.UUID) (*models.CourseLiveProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[courseID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// Create implements Store. New profiles always start IDLE without a credential.
func (s *MemoryStore) Create(_ context.Context, p *models.CourseLiveProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	cp := p.Clone()
	cp.Status = models.LiveStatusIdle
	cp.Credential = nil
	cp.Version = 1
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.profiles[p.CourseID] = cp
	p.Status, p.Credential, p.Version, p.CreatedAt, p.UpdatedAt = cp.Status, nil, cp.Version, now, now
	return nil
}

// Transition implements Store.
func (s *MemoryStore) Transition(ctx context.Context, courseID uuid.UUID, expected models.LiveStatus, mutate Mutation) (*models.CourseLiveProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[courseID]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Status != expected {
		return nil, ErrConflict
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.CourseID = cur.CourseID
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now()
	s.profiles[courseID] = next
	return next.Clone(), nil
}

// CountActive implements Store.
func (s *MemoryStore) CountActive(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.profiles {
		if p.Status == models.LiveStatusActive {
			n++
		}
	}
	return n, nil
}
