package recordings

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/access"
	"github.com/aura-webinar/liveclass/internal/middleware"
	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/pkg/response"
)

// Viewer decides who may list a course's recordings.
type Viewer interface {
	CanView(ctx context.Context, courseID, principal uuid.UUID) error
}

// Presigner signs playback URLs for recordings stored in the recordings bucket. Optional.
type Presigner interface {
	PresignRecording(ctx context.Context, key string) (string, error)
}

// Listed is a recording reference with an optional signed playback URL.
type Listed struct {
	models.RecordingReference
	PlaybackURL string `json:"playback_url,omitempty"`
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	finalizer *Finalizer
	viewer    Viewer
	presigner Presigner
	logger    *zap.Logger
}

// NewHandler creates a recordings handler. presigner may be nil.
func NewHandler(finalizer *Finalizer, viewer Viewer, presigner Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{finalizer: finalizer, viewer: viewer, presigner: presigner, logger: logger}
}

// ListByCourse handles GET /courses/:id/live/recordings. Owner or admitted principals only.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	if err := h.viewer.CanView(ctx, courseID, userID); err != nil {
		switch {
		case errors.Is(err, access.ErrUnauthorized):
			response.Unauthorized(c, "not authorized to list recordings")
		case errors.Is(err, access.ErrCourseNotFound):
			response.NotFound(c, "course not found")
		default:
			h.logger.Error("authorize recordings list failed", zap.Error(err), zap.String("course_id", courseID.String()))
			response.Internal(c, "failed to list recordings")
		}
		return
	}

	refs, err := h.finalizer.List(ctx, courseID)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err), zap.String("course_id", courseID.String()))
		response.Internal(c, "failed to list recordings")
		return
	}
	out := make([]Listed, 0, len(refs))
	for _, ref := range refs {
		out = append(out, Listed{RecordingReference: ref, PlaybackURL: h.playbackURL(ctx, ref)})
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: out})
}

func (h *Handler) playbackURL(ctx context.Context, ref models.RecordingReference) string {
	if h.presigner == nil || ref.S3Key == "" {
		return ""
	}
	url, err := h.presigner.PresignRecording(ctx, ref.S3Key)
	if err != nil {
		h.logger.Warn("presign recording failed", zap.Error(err), zap.String("key", ref.S3Key))
		return ""
	}
	return url
}
