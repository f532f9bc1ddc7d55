package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/access"
	"github.com/aura-webinar/liveclass/internal/middleware"
	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/pkg/response"
)

const (
	writeWait    = 10 * time.Second
	sendBuffer   = 16
	readLimit    = 4096
	snapshotWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware restricts browsers before the upgrade
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Viewer authorizes a principal to watch a course.
type Viewer interface {
	CanView(ctx context.Context, courseID, principal uuid.UUID) error
}

// StatusReader returns the current status of a course for the initial snapshot.
type StatusReader interface {
	Status(ctx context.Context, courseID uuid.UUID) (models.LiveStatusView, error)
}

// Client is one websocket viewer of a course. Viewers only receive.
type Client struct {
	ID       string
	CourseID uuid.UUID
	UserID   uuid.UUID
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// ServeWs handles GET /ws?course_id=. Must run behind middleware.JWTQuery.
func ServeWs(hub *Hub, viewer Viewer, status StatusReader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID, err := uuid.Parse(c.Query("course_id"))
		if err != nil {
			response.BadRequest(c, "invalid course_id")
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		if err := viewer.CanView(c.Request.Context(), courseID, userID); err != nil {
			switch {
			case errors.Is(err, access.ErrCourseNotFound):
				response.NotFound(c, "course not found")
			case errors.Is(err, access.ErrUnauthorized):
				response.Unauthorized(c, "not authorized to watch this course")
			default:
				logger.Error("authorize websocket failed", zap.Error(err))
				response.Internal(c, "internal error")
			}
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.NewString(),
			CourseID: courseID,
			UserID:   userID,
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, sendBuffer),
			logger:   logger,
		}
		hub.Register(client)
		client.sendSnapshot(c.Request.Context(), status)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) sendSnapshot(ctx context.Context, status StatusReader) {
	ctx, cancel := context.WithTimeout(ctx, snapshotWait)
	defer cancel()
	view, err := status.Status(ctx, c.CourseID)
	if err != nil {
		c.logger.Warn("status snapshot failed", zap.Error(err), zap.String("course_id", c.CourseID.String()))
		return
	}
	data, err := json.Marshal(StatusEvent{CourseID: c.CourseID, Status: view.Status, At: time.Now()})
	if err != nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: EventStatus, Data: data}:
	default:
	}
}

// readPump drains control frames until the connection closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
