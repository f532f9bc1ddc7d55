package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/internal/realtime"
)

// RedisSubscription turns pushed status events into edges, replacing the poll loop.
type RedisSubscription struct {
	events chan Event
	cancel context.CancelFunc
	mu     sync.Mutex
	last   models.LiveStatus
	closed bool
	unsub  func()
}

// SubscribePush subscribes to pushed events for courseID. When seed is non-nil its current
// status is delivered first so the subscriber starts from a known state.
func SubscribePush(ctx context.Context, sub realtime.Subscriber, seed StatusSource, courseID uuid.UUID) (*RedisSubscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &RedisSubscription{events: make(chan Event, eventBuffer), cancel: cancel}

	unsub, err := sub.SubscribeCourse(courseID, func(ev realtime.StatusEvent) {
		s.deliver(ctx, courseID, ev.Status, ev.At)
	})
	if err != nil {
		cancel()
		return nil, err
	}
	s.unsub = unsub

	if seed != nil {
		sctx, scancel := context.WithTimeout(ctx, DefaultInterval)
		view, err := seed.Status(sctx, courseID)
		scancel()
		if err == nil {
			s.deliver(ctx, courseID, view.Status, time.Now())
		}
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s, nil
}

func (s *RedisSubscription) deliver(ctx context.Context, courseID uuid.UUID, status models.LiveStatus, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !status.Valid() || status == s.last {
		return
	}
	select {
	case s.events <- Event{CourseID: courseID, From: s.last, To: status, At: at}:
		s.last = status
	case <-ctx.Done():
	}
}

// Events implements Subscription.
func (s *RedisSubscription) Events() <-chan Event { return s.events }

// Close implements Subscription.
func (s *RedisSubscription) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.unsub != nil {
		s.unsub()
	}
	close(s.events)
}
