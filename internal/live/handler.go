package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/courses"
	"github.com/aura-webinar/liveclass/internal/middleware"
	"github.com/aura-webinar/liveclass/pkg/response"
)

// UpcomingLister lists the live courses a user can attend within a time range.
type UpcomingLister interface {
	UpcomingForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]courses.Upcoming, error)
}

// SessionResponse is the body returned by start and join.
type SessionResponse struct {
	Credential string    `json:"credential"`
	ChannelID  string    `json:"channelId"`
	AppID      string    `json:"appId"`
	UID        int       `json:"uid"`
	Role       string    `json:"role"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Handler handles live session HTTP endpoints.
type Handler struct {
	orch      *Orchestrator
	upcoming  UpcomingLister
	lookahead time.Duration
	logger    *zap.Logger
}

// NewHandler creates a live session handler. upcoming may be nil.
func NewHandler(orch *Orchestrator, upcoming UpcomingLister, lookahead time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orch: orch, upcoming: upcoming, lookahead: lookahead, logger: logger}
}

// Register mounts the routes on an authenticated group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/courses/:id/live", h.StartOrJoin)
	g.POST("/courses/:id/live/join", h.Join)
	g.DELETE("/courses/:id/live", h.Stop)
	g.GET("/courses/:id/live/status", h.Status)
	g.GET("/me/live/upcoming", h.Upcoming)
}

// StartOrJoin handles POST /courses/:id/live. The owner starts; anyone else joins.
func (h *Handler) StartOrJoin(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	// An unparsable body starts with defaults; participants' options are ignored.
	var opts StartOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		opts = StartOptions{}
	}
	s, err := h.orch.StartOrJoin(c.Request.Context(), courseID, userID, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, sessionResponse(s))
}

// Join handles POST /courses/:id/live/join.
func (h *Handler) Join(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	h.join(c, courseID, c.MustGet(middleware.ContextUserID).(uuid.UUID))
}

func (h *Handler) join(c *gin.Context, courseID, userID uuid.UUID) {
	s, err := h.orch.Join(c.Request.Context(), courseID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, sessionResponse(s))
}

// Stop handles DELETE /courses/:id/live. The body is optional.
func (h *Handler) Stop(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var opts StopOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		opts = StopOptions{}
	}
	res, err := h.orch.Stop(c.Request.Context(), courseID, userID, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{"status": "IDLE", "noop": res.NoOp}
	if res.Recording != nil {
		body["recording"] = res.Recording
	}
	if res.RecordingErr != nil {
		body["warning"] = "session stopped but the recording could not be saved"
	}
	response.OK(c, body)
}

// Status handles GET /courses/:id/live/status.
func (h *Handler) Status(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	view, err := h.orch.Status(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, view)
}

// Upcoming handles GET /me/live/upcoming.
func (h *Handler) Upcoming(c *gin.Context) {
	if h.upcoming == nil {
		response.ServiceUnavailable(c, "upcoming sessions not available")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	now := time.Now()
	list, err := h.upcoming.UpcomingForUser(c.Request.Context(), userID, now, now.Add(h.lookahead))
	if err != nil {
		h.logger.Error("list upcoming live courses failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to list upcoming live courses")
		return
	}
	if list == nil {
		list = []courses.Upcoming{}
	}
	response.OK(c, list)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("live request failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, "internal error")
		return
	}
	response.Fail(c, status, err.Error())
}

// StatusFor maps orchestrator errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNoEligibleSchedule),
		errors.Is(err, ErrAlreadyActive),
		errors.Is(err, ErrNoActiveSession),
		errors.Is(err, ErrInvalidCapacity):
		return http.StatusBadRequest
	case errors.Is(err, ErrStopContended):
		return http.StatusConflict
	case errors.Is(err, ErrCapacityExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrCourseNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func courseParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return uuid.Nil, false
	}
	return id, true
}

func sessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		Credential: s.Credential.Token,
		ChannelID:  s.ChannelID,
		AppID:      s.AppID,
		Role:       string(s.Credential.Role),
		ExpiresAt:  s.Credential.ExpiresAt,
	}
}
