// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// headerRequestID mirrors middleware.HeaderRequestID; failures echo it so clients can quote it.
const headerRequestID = "X-Request-ID"

// Body is the standard API response envelope.
type Body struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Fail sends status with an error message and aborts the handler chain.
func Fail(c *gin.Context, status int, err string) {
	c.AbortWithStatusJSON(status, Body{
		Success:   false,
		Error:     err,
		RequestID: c.Writer.Header().Get(headerRequestID),
	})
}

// BadRequest sends 400.
func BadRequest(c *gin.Context, err string) { Fail(c, http.StatusBadRequest, err) }

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) { Fail(c, http.StatusUnauthorized, err) }

// NotFound sends 404.
func NotFound(c *gin.Context, err string) { Fail(c, http.StatusNotFound, err) }

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) { Fail(c, http.StatusServiceUnavailable, err) }

// Internal sends 500. Callers pass a generic message; details belong in the log.
func Internal(c *gin.Context, err string) { Fail(c, http.StatusInternalServerError, err) }
