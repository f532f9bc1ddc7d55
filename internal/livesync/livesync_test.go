package livesync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/internal/realtime"
)

// scriptedSource replays statuses, then repeats the last one. An empty entry is an error.
type scriptedSource struct {
	mu     sync.Mutex
	script []models.LiveStatus
	calls  int
}

func (s *scriptedSource) Status(_ context.Context, courseID uuid.UUID) (models.LiveStatusView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	if s.script[i] == "" {
		return models.LiveStatusView{}, errors.New("poll failed")
	}
	return models.LiveStatusView{CourseID: courseID, Status: s.script[i]}, nil
}

func collect(t *testing.T, sub Subscription, n int) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "subscription closed early")
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("got %d of %d events", len(out), n)
		}
	}
	return out
}

func TestPoller_DeliversEdgesOnly(t *testing.T) {
	src := &scriptedSource{script: []models.LiveStatus{
		models.LiveStatusIdle, models.LiveStatusIdle, models.LiveStatusActive, "", models.LiveStatusActive, models.LiveStatusIdle,
	}}
	course := uuid.New()
	sub := NewPoller(src, 5*time.Millisecond, nil).Subscribe(context.Background(), course)
	defer sub.Close()

	events := collect(t, sub, 3)
	assert.Equal(t, models.LiveStatus(""), events[0].From)
	assert.Equal(t, models.LiveStatusIdle, events[0].To)
	assert.Equal(t, models.LiveStatusIdle, events[1].From)
	assert.Equal(t, models.LiveStatusActive, events[1].To)
	assert.Equal(t, models.LiveStatusActive, events[2].From)
	assert.Equal(t, models.LiveStatusIdle, events[2].To)
	assert.Equal(t, course, events[2].CourseID)
}

func TestPoller_CancelStopsOnlyThatLoop(t *testing.T) {
	src := &scriptedSource{script: []models.LiveStatus{models.LiveStatusIdle}}
	p := NewPoller(src, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := p.Subscribe(ctx, uuid.New())
	second := p.Subscribe(context.Background(), uuid.New())
	defer second.Close()

	collect(t, first, 1)
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-first.Events():
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	collect(t, second, 1)
}

func TestWatch_Reactions(t *testing.T) {
	src := &scriptedSource{script: []models.LiveStatus{
		models.LiveStatusIdle, models.LiveStatusActive, models.LiveStatusIdle,
	}}
	sub := NewPoller(src, 5*time.Millisecond, nil).Subscribe(context.Background(), uuid.New())

	var live, ended int
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, sub, Reactions{
			OnLive: func(Event) { live++ },
			OnEnded: func(Event) {
				ended++
				cancel()
			},
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not finish")
	}
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, ended)
}

func TestWatch_FirstObservationActiveJoins(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{To: models.LiveStatusActive}
	close(events)

	joined := false
	err := Watch(context.Background(), chanSub(events), Reactions{OnLive: func(Event) { joined = true }})
	require.NoError(t, err)
	assert.True(t, joined)
}

type chanSub chan Event

func (c chanSub) Events() <-chan Event { return c }
func (c chanSub) Close()               {}

func TestHTTPStatusSource(t *testing.T) {
	course := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"missing authorization header"}`))
			return
		}
		assert.Equal(t, "/courses/"+course.String()+"/live/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":"ACTIVE","channelId":"c1","isLive":true,"participantCount":3}}`))
	}))
	defer srv.Close()

	view, err := NewHTTPStatusSource(srv.URL+"/", "tok", srv.Client()).Status(context.Background(), course)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusActive, view.Status)
	assert.Equal(t, "c1", view.ChannelID)
	assert.Equal(t, 3, view.ParticipantCount)

	_, err = NewHTTPStatusSource(srv.URL, "", nil).Status(context.Background(), course)
	assert.ErrorContains(t, err, "missing authorization header")
}

type fakePush struct {
	mu      sync.Mutex
	handler func(realtime.StatusEvent)
}

func (f *fakePush) SubscribeCourse(_ uuid.UUID, h func(realtime.StatusEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
	return func() {}, nil
}

func (f *fakePush) push(status models.LiveStatus) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(realtime.StatusEvent{Status: status, At: time.Now()})
}

func TestSubscribePush(t *testing.T) {
	push := &fakePush{}
	seed := &scriptedSource{script: []models.LiveStatus{models.LiveStatusIdle}}
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := SubscribePush(ctx, push, seed, uuid.New())
	require.NoError(t, err)

	push.push(models.LiveStatusIdle)
	push.push(models.LiveStatusActive)
	push.push(models.LiveStatusActive)
	push.push(models.LiveStatusIdle)

	events := collect(t, sub, 3)
	assert.Equal(t, models.LiveStatusIdle, events[0].To)
	assert.Equal(t, models.LiveStatusActive, events[1].To)
	assert.Equal(t, models.LiveStatusIdle, events[2].To)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-sub.Events()
		return !ok
	}, time.Second, 5*time.Millisecond)
}
