package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-webinar/liveclass/internal/models"
)

// HTTPStatusSource reads GET /courses/:id/live/status from a server.
type HTTPStatusSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPStatusSource creates a source for baseURL authenticated with a bearer token.
// A nil client uses http.DefaultClient; the poller bounds each request by context.
func NewHTTPStatusSource(baseURL, token string, client *http.Client) *HTTPStatusSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStatusSource{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

type statusEnvelope struct {
	Success bool                  `json:"success"`
	Data    models.LiveStatusView `json:"data"`
	Error   string                `json:"error"`
}

// Status implements StatusSource.
func (s *HTTPStatusSource) Status(ctx context.Context, courseID uuid.UUID) (models.LiveStatusView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/courses/"+courseID.String()+"/live/status", nil)
	if err != nil {
		return models.LiveStatusView{}, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return models.LiveStatusView{}, err
	}
	defer resp.Body.Close()

	var env statusEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return models.LiveStatusView{}, fmt.Errorf("decode status (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return models.LiveStatusView{}, fmt.Errorf("status request failed (http %d): %s", resp.StatusCode, env.Error)
	}
	return env.Data, nil
}
