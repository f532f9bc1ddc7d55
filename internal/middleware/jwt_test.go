package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/liveclass/internal/auth"
)

func newRouter(svc *auth.JWTService, mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserID).(uuid.UUID).String())
	})
	return r
}

func TestJWT(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	userID := uuid.New()
	token, err := svc.Generate(userID, "owner@example.com", "instructor")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mw     gin.HandlerFunc
		header string
		query  string
		want   int
	}{
		{"bearer", JWT(svc), "Bearer " + token, "", http.StatusOK},
		{"missing", JWT(svc), "", "", http.StatusUnauthorized},
		{"wrong scheme", JWT(svc), "Basic " + token, "", http.StatusUnauthorized},
		{"garbage", JWT(svc), "Bearer nope", "", http.StatusUnauthorized},
		{"query not allowed", JWT(svc), "", token, http.StatusUnauthorized},
		{"query allowed", JWTQuery(svc), "", token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/me"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			newRouter(svc, tt.mw).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, userID.String(), rec.Body.String())
			}
		})
	}
}
