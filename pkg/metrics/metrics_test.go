package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.ObserveOperation("start", "ok")
	m.IncConflicts()
	called := false

	rec := httptest.NewRecorder()
	m.Handler(func() { called = true; m.SetActiveSessions(3) }).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.True(t, called)
	body := rec.Body.String()
	assert.Contains(t, body, `live_operations_total{operation="start",outcome="ok"} 1`)
	assert.Contains(t, body, "live_cas_conflicts_total 1")
	assert.Contains(t, body, "live_active_sessions 3")
}
