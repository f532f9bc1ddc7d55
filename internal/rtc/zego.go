package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ZEGOCLOUD/zego_server_assistant/token/go/src/token04"

	"github.com/aura-webinar/liveclass/internal/models"
)

// roomPayload is the token04 room payload. See ZEGOCLOUD token04 docs.
type roomPayload struct {
	RoomID       string      `json:"RoomId"`
	Privilege    map[int]int `json:"Privilege"`
	StreamIDList []string    `json:"StreamIdList,omitempty"`
}

// ZegoIssuer mints ZEGOCLOUD token04 room tokens.
type ZegoIssuer struct {
	appID        uint32
	serverSecret string
	now          func() time.Time
}

// NewZegoIssuer creates a token04 issuer. serverSecret must be 32 characters.
func NewZegoIssuer(appID uint32, serverSecret string) *ZegoIssuer {
	return &ZegoIssuer{appID: appID, serverSecret: serverSecret, now: time.Now}
}

// AppID implements Issuer.
func (z *ZegoIssuer) AppID() string { return strconv.FormatUint(uint64(z.appID), 10) }

// Issue implements Issuer. PUBLISHER gets the publish privilege; SUBSCRIBER may only pull.
func (z *ZegoIssuer) Issue(ctx context.Context, req Request) (models.Credential, error) {
	if err := ctx.Err(); err != nil {
		return models.Credential{}, err
	}
	if len(z.serverSecret) != 32 {
		return models.Credential{}, fmt.Errorf("zego: server_secret must be 32 characters")
	}
	payload, ttl, err := roomGrant(req, z.now())
	if err != nil {
		return models.Credential{}, err
	}
	token, err := token04.GenerateToken04(z.appID, req.UserID, z.serverSecret, ttl, payload)
	if err != nil {
		return models.Credential{}, fmt.Errorf("zego: generate token: %w", err)
	}
	return models.Credential{Token: token, Role: req.Role, ExpiresAt: req.ExpiresAt}, nil
}

// roomGrant builds the room payload and the lifetime in whole seconds.
func roomGrant(req Request, now time.Time) (string, int64, error) {
	if err := validate(req, now); err != nil {
		return "", 0, err
	}
	ttl := int64(req.ExpiresAt.Sub(now) / time.Second)
	if ttl < 1 {
		return "", 0, fmt.Errorf("zego: expiry must be at least one second away")
	}
	privilege := map[int]int{
		token04.PrivilegeKeyLogin:   token04.PrivilegeEnable,
		token04.PrivilegeKeyPublish: token04.PrivilegeDisable,
	}
	if req.Role == models.RolePublisher {
		privilege[token04.PrivilegeKeyPublish] = token04.PrivilegeEnable
	}
	payload, err := json.Marshal(roomPayload{RoomID: req.ChannelID, Privilege: privilege})
	if err != nil {
		return "", 0, fmt.Errorf("zego: marshal payload: %w", err)
	}
	return string(payload), ttl, nil
}
