package rtc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/liveclass/config"
	"github.com/aura-webinar/liveclass/internal/models"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	iss := NewJWTIssuer("secret", "test-app")
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	cred, err := iss.Issue(context.Background(), Request{
		ChannelID: "course_abc_1",
		UserID:    "user-1",
		Role:      models.RolePublisher,
		ExpiresAt: exp,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolePublisher, cred.Role)
	assert.Equal(t, exp, cred.ExpiresAt)

	claims, err := iss.Verify(cred.Token)
	require.NoError(t, err)
	assert.Equal(t, "course_abc_1", claims.Channel)
	assert.True(t, claims.CanPublish)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "test-app", iss.AppID())
}

func TestJWTIssuer_SubscriberCannotPublish(t *testing.T) {
	iss := NewJWTIssuer("secret", "")
	cred, err := iss.Issue(context.Background(), Request{
		ChannelID: "c", UserID: "u", Role: models.RoleSubscriber, ExpiresAt: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	claims, err := iss.Verify(cred.Token)
	require.NoError(t, err)
	assert.False(t, claims.CanPublish)
}

func TestJWTIssuer_RejectsBadRequests(t *testing.T) {
	iss := NewJWTIssuer("secret", "")
	ctx := context.Background()
	future := time.Now().Add(time.Minute)

	_, err := iss.Issue(ctx, Request{Role: models.RoleSubscriber, ExpiresAt: future})
	assert.Error(t, err, "missing channel")
	_, err = iss.Issue(ctx, Request{ChannelID: "c", Role: "ADMIN", ExpiresAt: future})
	assert.Error(t, err, "bad role")
	_, err = iss.Issue(ctx, Request{ChannelID: "c", Role: models.RoleSubscriber, ExpiresAt: time.Now().Add(-time.Second)})
	assert.Error(t, err, "expired")
}

func TestJWTIssuer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewJWTIssuer("s", "").Issue(ctx, Request{ChannelID: "c", Role: models.RoleSubscriber, ExpiresAt: time.Now().Add(time.Minute)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_SelectsProvider(t *testing.T) {
	_, err := New(config.RTCConfig{Provider: "zego"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	iss, err := New(config.RTCConfig{Provider: "zego", AppID: 42, ServerSecret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "42", iss.AppID())

	_, err = New(config.RTCConfig{Provider: "jwt"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(config.RTCConfig{Provider: "agora"})
	assert.Error(t, err)
}
