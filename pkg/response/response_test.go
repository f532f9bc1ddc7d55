package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, handlers ...gin.HandlerFunc) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handlers...)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestOK(t *testing.T) {
	rec, body := run(t, func(c *gin.Context) { OK(c, gin.H{"n": 1}) })
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Empty(t, body.Error)
}

func TestFail_EchoesRequestIDAndAborts(t *testing.T) {
	reached := false
	rec, body := run(t,
		func(c *gin.Context) {
			c.Header(headerRequestID, "req-1")
			NotFound(c, "course not found")
		},
		func(c *gin.Context) { reached = true },
	)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "course not found", body.Error)
	assert.Equal(t, "req-1", body.RequestID)
	assert.False(t, reached)
}

func TestHelpersStatus(t *testing.T) {
	cases := map[int]func(*gin.Context, string){
		http.StatusBadRequest:          BadRequest,
		http.StatusUnauthorized:        Unauthorized,
		http.StatusServiceUnavailable:  ServiceUnavailable,
		http.StatusInternalServerError: Internal,
	}
	for status, fn := range cases {
		fn := fn
		rec, _ := run(t, func(c *gin.Context) { fn(c, "x") })
		assert.Equal(t, status, rec.Code)
	}
}
