// Package livesync keeps viewers in step with a course's live status. A Subscription
// delivers status edges; Watch turns them into join and cleanup reactions.
package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/models"
)

const (
	DefaultInterval = 5 * time.Second
	eventBuffer     = 8
)

// StatusSource reports the current status of a course.
type StatusSource interface {
	Status(ctx context.Context, courseID uuid.UUID) (models.LiveStatusView, error)
}

// Event is an observed status edge. From is empty for the first observation.
type Event struct {
	CourseID uuid.UUID
	From     models.LiveStatus
	To       models.LiveStatus
	At       time.Time
}

// Subscription delivers status edges until closed or its context ends.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Poller polls a StatusSource at a fixed interval.
type Poller struct {
	source   StatusSource
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller. Each poll is bounded by the interval.
func NewPoller(source StatusSource, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{source: source, interval: interval, timeout: interval, logger: logger}
}

// Subscribe starts a poll loop for courseID. Canceling ctx or calling Close stops only this loop.
func (p *Poller) Subscribe(ctx context.Context, courseID uuid.UUID) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &pollSubscription{events: make(chan Event, eventBuffer), cancel: cancel}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.events)
		p.run(ctx, courseID, s.events)
	}()
	return s
}

func (p *Poller) run(ctx context.Context, courseID uuid.UUID, out chan<- Event) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last models.LiveStatus
	for {
		if status, ok := p.poll(ctx, courseID); ok && status != last {
			ev := Event{CourseID: courseID, From: last, To: status, At: time.Now()}
			select {
			case out <- ev:
				last = status
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, courseID uuid.UUID) (models.LiveStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	view, err := p.source.Status(ctx, courseID)
	if err != nil {
		p.logger.Debug("status poll failed", zap.Error(err), zap.String("course_id", courseID.String()))
		return "", false
	}
	return view.Status, view.Status.Valid()
}

type pollSubscription struct {
	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *pollSubscription) Events() <-chan Event { return s.events }

// Close stops the loop and waits for it to exit.
func (s *pollSubscription) Close() {
	s.cancel()
	s.wg.Wait()
}
