package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/liveclass/internal/auth"
	"github.com/aura-webinar/liveclass/internal/courses"
	"github.com/aura-webinar/liveclass/internal/middleware"
	"github.com/aura-webinar/liveclass/internal/models"
)

type stubUpcoming struct {
	list []courses.Upcoming
	err  error
}

func (s stubUpcoming) UpcomingForUser(context.Context, uuid.UUID, time.Time, time.Time) ([]courses.Upcoming, error) {
	return s.list, s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type server struct {
	h      *harness
	router *gin.Engine
	jwt    *auth.JWTService
}

func newServer(t *testing.T, upcoming UpcomingLister) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := newHarness(t, -5*time.Minute)
	svc := auth.NewJWTService("handler-secret", 1)
	r := gin.New()
	NewHandler(h.orch, upcoming, 2*time.Hour, nil).Register(r.Group("", middleware.JWT(svc)))
	return &server{h: h, router: r, jwt: svc}
}

func (s *server) do(t *testing.T, method, path string, user uuid.UUID, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		token, err := s.jwt.Generate(user, "", "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (s *server) livePath(suffix string) string {
	return "/courses/" + s.h.course.String() + "/live" + suffix
}

func TestHandler_StartJoinStop(t *testing.T) {
	s := newServer(t, nil)
	participant := s.h.admit(t)

	code, env := s.do(t, http.MethodPost, s.livePath(""), participant, nil)
	assert.Equal(t, http.StatusBadRequest, code, "join before start")
	assert.Equal(t, ErrNoActiveSession.Error(), env.Error)

	code, env = s.do(t, http.MethodPost, s.livePath(""), s.h.owner, map[string]any{"maxParticipants": 10})
	require.Equal(t, http.StatusOK, code)
	var started SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.NotEmpty(t, started.Credential)
	assert.Equal(t, string(models.RolePublisher), started.Role)
	assert.Equal(t, "test-app", started.AppID)
	assert.Equal(t, 0, started.UID)

	code, _ = s.do(t, http.MethodPost, s.livePath(""), s.h.owner, nil)
	assert.Equal(t, http.StatusBadRequest, code, "second start")

	code, env = s.do(t, http.MethodPost, s.livePath(""), participant, nil)
	require.Equal(t, http.StatusOK, code)
	var joined SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, started.ChannelID, joined.ChannelID)
	assert.Equal(t, string(models.RoleSubscriber), joined.Role)

	code, env = s.do(t, http.MethodGet, s.livePath("/status"), participant, nil)
	require.Equal(t, http.StatusOK, code)
	var view models.LiveStatusView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.True(t, view.IsLive)
	assert.Equal(t, 1, view.ParticipantCount)
	require.NotNil(t, view.Capacity)
	assert.Equal(t, 10, *view.Capacity)

	code, _ = s.do(t, http.MethodDelete, s.livePath(""), participant, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(t, http.MethodDelete, s.livePath(""), s.h.owner, map[string]string{"title": "Week 1"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"noop":false`)
	assert.Contains(t, string(env.Data), "Week 1")

	code, env = s.do(t, http.MethodDelete, s.livePath(""), s.h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"noop":true`)
}

func TestHandler_Errors(t *testing.T) {
	s := newServer(t, nil)

	code, _ := s.do(t, http.MethodPost, s.livePath(""), uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "no token")

	code, _ = s.do(t, http.MethodPost, "/courses/not-a-uuid/live", s.h.owner, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/courses/"+uuid.NewString()+"/live", s.h.owner, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, s.livePath("/join"), uuid.New(), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	s.h.issuer.err = errors.New("provider down")
	code, env := s.do(t, http.MethodPost, s.livePath(""), s.h.owner, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", env.Error)
}

func TestHandler_StartIgnoresMalformedBody(t *testing.T) {
	s := newServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, s.livePath(""), bytes.NewBufferString("{not json"))
	token, err := s.jwt.Generate(s.h.owner, "", "")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Upcoming(t *testing.T) {
	course := uuid.New()
	s := newServer(t, stubUpcoming{list: []courses.Upcoming{{CourseID: course, Status: models.LiveStatusIdle}}})
	code, env := s.do(t, http.MethodGet, "/me/live/upcoming", uuid.New(), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), course.String())

	s = newServer(t, nil)
	code, _ = s.do(t, http.MethodGet, "/me/live/upcoming", uuid.New(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s = newServer(t, stubUpcoming{err: errors.New("db down")})
	code, _ = s.do(t, http.MethodGet, "/me/live/upcoming", uuid.New(), nil)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestHandler_StartRejectsNegativeCapacity(t *testing.T) {
	s := newServer(t, nil)

	code, env := s.do(t, http.MethodPost, s.livePath(""), s.h.owner, map[string]any{"maxParticipants": -1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, ErrInvalidCapacity.Error(), env.Error)
	assert.Equal(t, models.LiveStatusIdle, s.h.profile(t).Status)

	code, _ = s.do(t, http.MethodPost, s.livePath(""), s.h.owner, map[string]any{"maxParticipants": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, s.h.profile(t).Capacity)
}
