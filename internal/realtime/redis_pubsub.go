package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/models"
)

const (
	channelPrefix    = "live:course:"
	subscribeTimeout = 5 * time.Second
)

// ChannelFor is the Redis channel carrying status events of a course.
func ChannelFor(courseID uuid.UUID) string {
	return channelPrefix + courseID.String()
}

// RedisPubSub publishes and subscribes to course status events over Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for course status events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// PublishStatus publishes a status change to every instance.
func (r *RedisPubSub) PublishStatus(ctx context.Context, courseID uuid.UUID, status models.LiveStatus) error {
	body, err := json.Marshal(StatusEvent{CourseID: courseID, Status: status, At: time.Now()})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, ChannelFor(courseID), body).Err()
}

// SubscribeCourse calls handler for each status event of the course until cancel is called.
func (r *RedisPubSub) SubscribeCourse(courseID uuid.UUID, handler func(StatusEvent)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	sctx, scancel := context.WithTimeout(ctx, subscribeTimeout)
	defer scancel()
	pubsub := r.client.Subscribe(sctx, ChannelFor(courseID))
	if _, err := pubsub.Receive(sctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev StatusEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.logger.Debug("drop malformed status event", zap.Error(err))
					continue
				}
				handler(ev)
			}
		}
	}()
	return cancelCtx, nil
}
