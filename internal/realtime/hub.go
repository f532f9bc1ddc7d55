// Package realtime pushes course live-status changes to websocket viewers. Redis pub/sub
// fans events out across server instances.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second

	// EventStatus carries a StatusEvent.
	EventStatus = "status"
)

// StatusEvent is the payload of a status message.
type StatusEvent struct {
	CourseID uuid.UUID         `json:"courseId"`
	Status   models.LiveStatus `json:"status"`
	At       time.Time         `json:"at"`
}

// Subscriber subscribes to a course's status channel. cancel stops delivery.
type Subscriber interface {
	SubscribeCourse(courseID uuid.UUID, handler func(StatusEvent)) (cancel func(), err error)
}

// courseSub is a course channel subscription. cancel is nil while the subscribe call is in flight.
type courseSub struct {
	cancel func()
}

// Hub maintains course_id -> set of connections and broadcasts status changes to them.
type Hub struct {
	courses map[uuid.UUID]map[string]*Client
	subs    map[uuid.UUID]*courseSub
	mu      sync.RWMutex
	sub     Subscriber
	logger  *zap.Logger
}

// NewHub creates a hub. With a nil Subscriber only local PublishStatus calls reach clients.
func NewHub(logger *zap.Logger, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		courses: make(map[uuid.UUID]map[string]*Client),
		subs:    make(map[uuid.UUID]*courseSub),
		sub:     sub,
		logger:  logger,
	}
}

// Register adds a client to a course room, subscribing to the course channel for the first
// client. The subscribe call runs outside the hub lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	var pending *courseSub
	if h.courses[c.CourseID] == nil {
		h.courses[c.CourseID] = make(map[string]*Client)
		if h.sub != nil {
			pending = &courseSub{}
			h.subs[c.CourseID] = pending
		}
	}
	h.courses[c.CourseID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("viewer connected", zap.String("client_id", c.ID), zap.String("course_id", c.CourseID.String()))

	if pending != nil {
		h.subscribe(c.CourseID, pending)
	}
}

func (h *Hub) subscribe(courseID uuid.UUID, pending *courseSub) {
	cancel, err := h.sub.SubscribeCourse(courseID, h.Broadcast)

	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.subs[courseID] == pending
	if err != nil {
		h.logger.Warn("subscribe course failed", zap.Error(err), zap.String("course_id", courseID.String()))
		if current {
			delete(h.subs, courseID)
		}
		return
	}
	if !current {
		// The room emptied while subscribing.
		cancel()
		return
	}
	pending.cancel = cancel
}

// Unregister removes a client and drops the course subscription when the room empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.courses[c.CourseID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.courses, c.CourseID)
		if s, ok := h.subs[c.CourseID]; ok {
			if s.cancel != nil {
				s.cancel()
			}
			delete(h.subs, c.CourseID)
		}
	}
	h.logger.Debug("viewer disconnected", zap.String("client_id", c.ID), zap.String("course_id", c.CourseID.String()))
}

// Broadcast sends ev to local clients of its course. Slow clients miss the event.
func (h *Hub) Broadcast(ev StatusEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := WSMessage{Event: EventStatus, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.courses[ev.CourseID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// PublishStatus broadcasts locally. Used when no Redis is configured.
func (h *Hub) PublishStatus(_ context.Context, courseID uuid.UUID, status models.LiveStatus) error {
	h.Broadcast(StatusEvent{CourseID: courseID, Status: status, At: time.Now()})
	return nil
}

// ViewerCount returns the number of connected clients for a course.
func (h *Hub) ViewerCount(courseID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.courses[courseID])
}
