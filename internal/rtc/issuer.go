// Package rtc issues role-scoped access credentials for real-time channels.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aura-webinar/liveclass/config"
	"github.com/aura-webinar/liveclass/internal/models"
)

// ErrNotConfigured is returned by New when the selected provider lacks credentials.
var ErrNotConfigured = errors.New("rtc: provider not configured")

// Request describes the credential to mint.
type Request struct {
	ChannelID string
	UserID    string
	Role      models.CredentialRole
	ExpiresAt time.Time
}

// Issuer mints credentials. Implementations may fail or block; callers bound them with ctx.
type Issuer interface {
	Issue(ctx context.Context, req Request) (models.Credential, error)
	// AppID is handed to clients alongside the credential.
	AppID() string
}

// New builds the issuer selected by cfg.Provider ("zego" or "jwt").
func New(cfg config.RTCConfig) (Issuer, error) {
	switch cfg.Provider {
	case "zego":
		if cfg.AppID == 0 || cfg.ServerSecret == "" {
			return nil, fmt.Errorf("%w: ZEGO_APP_ID, ZEGO_SERVER_SECRET", ErrNotConfigured)
		}
		return NewZegoIssuer(cfg.AppID, cfg.ServerSecret), nil
	case "jwt", "":
		if cfg.SigningSecret == "" {
			return nil, fmt.Errorf("%w: RTC_SIGNING_SECRET", ErrNotConfigured)
		}
		return NewJWTIssuer(cfg.SigningSecret, cfg.Issuer), nil
	}
	return nil, fmt.Errorf("rtc: unknown provider %q", cfg.Provider)
}

func validate(req Request, now time.Time) error {
	if req.ChannelID == "" {
		return errors.New("rtc: channel id required")
	}
	if req.Role != models.RolePublisher && req.Role != models.RoleSubscriber {
		return fmt.Errorf("rtc: invalid role %q", req.Role)
	}
	if !req.ExpiresAt.After(now) {
		return errors.New("rtc: expiry must be in the future")
	}
	return nil
}
