package courses

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

type admissionKey struct {
	course uuid.UUID
	user   uuid.UUID
}

// MemoryRepository keeps schedules and admissions in process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	schedules  map[uuid.UUID][]models.ScheduledSession
	admissions map[admissionKey]*models.Admission
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		schedules:  make(map[uuid.UUID][]models.ScheduledSession),
		admissions: make(map[admissionKey]*models.Admission),
	}
}

// ListSchedules returns entries with scheduledAt in [from, to], earliest first.
func (m *MemoryRepository) ListSchedules(_ context.Context, courseID uuid.UUID, from, to time.Time) ([]models.ScheduledSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ScheduledSession
	for _, s := range m.schedules[courseID] {
		if s.ScheduledAt.Before(from) || s.ScheduledAt.After(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// AddSchedule stores a schedule entry.
func (m *MemoryRepository) AddSchedule(_ context.Context, s *models.ScheduledSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	m.schedules[s.CourseID] = append(m.schedules[s.CourseID], *s)
	return nil
}

// GetAdmission returns a copy of the admission, or nil.
func (m *MemoryRepository) GetAdmission(_ context.Context, courseID, userID uuid.UUID) (*models.Admission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admissions[admissionKey{courseID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// CountSeated counts participants with a booked seat.
func (m *MemoryRepository) CountSeated(_ context.Context, courseID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k, a := range m.admissions {
		if k.course == courseID && a.Role == models.AdmissionParticipant && a.SeatBooked {
			n++
		}
	}
	return n, nil
}

// BookSeat marks the seat as booked.
func (m *MemoryRepository) BookSeat(_ context.Context, courseID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.admissions[admissionKey{courseID, userID}]; ok {
		a.SeatBooked = true
	}
	return nil
}

// GrantAdmission stores an admission.
func (m *MemoryRepository) GrantAdmission(_ context.Context, a *models.Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := admissionKey{a.CourseID, a.UserID}
	if cur, ok := m.admissions[k]; ok {
		cur.Role = a.Role
		a.SeatBooked, a.CreatedAt = cur.SeatBooked, cur.CreatedAt
		return nil
	}
	a.CreatedAt = time.Now()
	cp := *a
	m.admissions[k] = &cp
	return nil
}
