package rtc

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

// GrantClaims is the payload of a JWT channel grant.
type GrantClaims struct {
	Channel    string `json:"channel"`
	Role       string `json:"role"`
	CanPublish bool   `json:"can_publish"`
	jwt.RegisteredClaims
}

// JWTIssuer mints HS256 channel grants for media servers that verify a shared secret.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTIssuer creates an HS256 grant issuer.
func NewJWTIssuer(secret, issuer string) *JWTIssuer {
	if issuer == "" {
		issuer = "liveclass"
	}
	return &JWTIssuer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// AppID implements Issuer.
func (j *JWTIssuer) AppID() string { return j.issuer }

// Issue implements Issuer.
func (j *JWTIssuer) Issue(ctx context.Context, req Request) (models.Credential, error) {
	if err := ctx.Err(); err != nil {
		return models.Credential{}, err
	}
	now := j.now()
	if err := validate(req, now); err != nil {
		return models.Credential{}, err
	}
	claims := GrantClaims{
		Channel:    req.ChannelID,
		Role:       string(req.Role),
		CanPublish: req.Role == models.RolePublisher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   req.UserID,
			ExpiresAt: jwt.NewNumericDate(req.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return models.Credential{}, fmt.Errorf("sign grant: %w", err)
	}
	return models.Credential{Token: token, Role: req.Role, ExpiresAt: req.ExpiresAt}, nil
}

// Verify parses a grant minted by this issuer.
func (j *JWTIssuer) Verify(token string) (*GrantClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &GrantClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*GrantClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid grant")
	}
	return claims, nil
}
