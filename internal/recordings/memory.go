package recordings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

// MemoryStore is an in-process Store, unique per session id.
type MemoryStore struct {
	mu   sync.Mutex
	refs map[uuid.UUID]models.RecordingReference
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[uuid.UUID]models.RecordingReference)}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, ref *models.RecordingReference) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[ref.SessionID]; ok {
		return false, nil
	}
	ref.ID = uuid.New()
	ref.CreatedAt = time.Now()
	m.refs[ref.SessionID] = *ref
	return true, nil
}

// ListByCourse implements Store.
func (m *MemoryStore) ListByCourse(_ context.Context, courseID uuid.UUID) ([]models.RecordingReference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecordingReference
	for _, r := range m.refs {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionEndedAt.After(out[j].SessionEndedAt) })
	return out, nil
}
