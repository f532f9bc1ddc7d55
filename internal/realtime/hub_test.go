package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/access"
	"github.com/aura-webinar/liveclass/internal/middleware"
	"github.com/aura-webinar/liveclass/internal/models"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]func(StatusEvent)
	canceled int
}

func (f *fakeSubscriber) SubscribeCourse(courseID uuid.UUID, handler func(StatusEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[uuid.UUID]func(StatusEvent))
	}
	f.handlers[courseID] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.canceled++
	}, nil
}

func newTestClient(course uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), CourseID: course, send: make(chan WSMessage, sendBuffer)}
}

func TestHub_RoomsAndSubscriptions(t *testing.T) {
	sub := &fakeSubscriber{}
	hub := NewHub(zap.NewNop(), sub)
	course, other := uuid.New(), uuid.New()

	a, b, c := newTestClient(course), newTestClient(course), newTestClient(other)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)
	assert.Equal(t, 2, hub.ViewerCount(course))
	assert.Len(t, sub.handlers, 2)

	sub.handlers[course](StatusEvent{CourseID: course, Status: models.LiveStatusActive})

	for _, cl := range []*Client{a, b} {
		msg := <-cl.send
		assert.Equal(t, EventStatus, msg.Event)
		var ev StatusEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, models.LiveStatusActive, ev.Status)
	}
	assert.Empty(t, c.send)

	hub.Unregister(a)
	hub.Unregister(a)
	assert.Equal(t, 0, sub.canceled)
	hub.Unregister(b)
	assert.Equal(t, 1, sub.canceled)
	assert.Equal(t, 0, hub.ViewerCount(course))

	_, open := <-b.send
	assert.False(t, open)
}

func TestHub_PublishStatusIsLocal(t *testing.T) {
	hub := NewHub(nil, nil)
	course := uuid.New()
	cl := newTestClient(course)
	hub.Register(cl)

	require.NoError(t, hub.PublishStatus(context.Background(), course, models.LiveStatusIdle))
	msg := <-cl.send
	assert.Contains(t, string(msg.Data), `"IDLE"`)
}

// gatedSubscriber blocks SubscribeCourse until release is closed.
type gatedSubscriber struct {
	entered  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	canceled int
}

func (g *gatedSubscriber) SubscribeCourse(uuid.UUID, func(StatusEvent)) (func(), error) {
	g.entered <- struct{}{}
	<-g.release
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.canceled++
	}, nil
}

func (g *gatedSubscriber) cancels() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canceled
}

func TestHub_SlowSubscribeDoesNotBlockRoom(t *testing.T) {
	sub := &gatedSubscriber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	hub := NewHub(nil, sub)
	course := uuid.New()
	first, second := newTestClient(course), newTestClient(course)

	registered := make(chan struct{})
	go func() {
		hub.Register(first)
		close(registered)
	}()
	<-sub.entered

	// The subscribe call is still in flight; the room stays usable.
	hub.Register(second)
	assert.Equal(t, 2, hub.ViewerCount(course))
	hub.Broadcast(StatusEvent{CourseID: course, Status: models.LiveStatusActive})
	assert.Len(t, second.send, 1)
	hub.Unregister(first)
	hub.Unregister(second)
	assert.Equal(t, 0, hub.ViewerCount(course))

	close(sub.release)
	<-registered
	assert.Equal(t, 1, sub.cancels(), "subscription of an emptied room is dropped")
}

type stubViewer struct{ err error }

func (s stubViewer) CanView(context.Context, uuid.UUID, uuid.UUID) error { return s.err }

type stubStatus struct{ status models.LiveStatus }

func (s stubStatus) Status(_ context.Context, courseID uuid.UUID) (models.LiveStatusView, error) {
	return models.LiveStatusView{CourseID: courseID, Status: s.status}, nil
}

func newWsServer(hub *Hub, viewer Viewer) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New())
	}, ServeWs(hub, viewer, stubStatus{status: models.LiveStatusIdle}, zap.NewNop()))
	return httptest.NewServer(r)
}

func TestServeWs_SnapshotThenPush(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := newWsServer(hub, stubViewer{})
	defer srv.Close()
	course := uuid.New()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?course_id=" + course.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Contains(t, string(msg.Data), `"IDLE"`)

	require.Eventually(t, func() bool { return hub.ViewerCount(course) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.PublishStatus(context.Background(), course, models.LiveStatusActive))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Contains(t, string(msg.Data), `"ACTIVE"`)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ViewerCount(course) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_Rejects(t *testing.T) {
	srv := newWsServer(NewHub(nil, nil), stubViewer{err: access.ErrUnauthorized})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws?course_id=" + uuid.NewString())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws?course_id=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// Runs against a real Redis when LIVE_TEST_REDIS_ADDR is set.
func TestRedisPubSub_RoundTrip(t *testing.T) {
	addr := os.Getenv("LIVE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIVE_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ps := NewRedisPubSub(rdb, nil)
	course := uuid.New()

	got := make(chan StatusEvent, 1)
	cancel, err := ps.SubscribeCourse(course, func(ev StatusEvent) { got <- ev })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.PublishStatus(context.Background(), course, models.LiveStatusActive))
	select {
	case ev := <-got:
		assert.Equal(t, course, ev.CourseID)
		assert.Equal(t, models.LiveStatusActive, ev.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
