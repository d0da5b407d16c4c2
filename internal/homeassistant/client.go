package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lights-api/internal/domain"
)

// Client talks to the Home Assistant REST API using bearer-token auth.
// It implements domain.LightController for the "light" service domain.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     domain.Logger
}

// NewClient builds a client for the given Home Assistant instance. The
// token may be empty; callers are expected to gate on configuration
// before invoking any operation.
func NewClient(baseURL, token string, logger domain.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type serviceCallBody struct {
	EntityID string `json:"entity_id"`
}

type entityState struct {
	State string `json:"state"`
}

// CallService POSTs /api/services/light/{service} for entityID and
// returns the raw response body. A non-2xx response becomes a
// *domain.UpstreamError carrying the upstream status and body.
func (c *Client) CallService(ctx context.Context, service string, entityID string) ([]byte, error) {
	payload, err := json.Marshal(serviceCallBody{EntityID: entityID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal service call body: %w", err)
	}

	url := fmt.Sprintf("%s/api/services/light/%s", c.baseURL, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build service call request: %w", err)
	}
	c.setHeaders(req)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &domain.UpstreamError{StatusCode: status, Body: string(body)}
	}

	return body, nil
}

// GetState fetches /api/states/{entityID} and returns the device state
// string plus the raw body.
func (c *Client) GetState(ctx context.Context, entityID string) (string, []byte, error) {
	url := fmt.Sprintf("%s/api/states/%s", c.baseURL, entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build state request: %w", err)
	}
	c.setHeaders(req)

	body, status, err := c.do(req)
	if err != nil {
		return "", nil, err
	}
	if status < 200 || status >= 300 {
		return "", nil, &domain.UpstreamError{StatusCode: status, Body: string(body)}
	}

	var state entityState
	if err := json.Unmarshal(body, &state); err != nil {
		return "", nil, fmt.Errorf("failed to parse state response for %s: %w", entityID, err)
	}

	return state.State, body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("Home Assistant request failed", err, map[string]interface{}{
				"method": req.Method,
				"url":    req.URL.String(),
			})
		}
		return nil, 0, fmt.Errorf("home assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read home assistant response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("Home Assistant request completed", map[string]interface{}{
			"method":     req.Method,
			"url":        req.URL.String(),
			"status":     resp.StatusCode,
			"latency_ms": time.Since(start).Seconds() * 1000,
		})
	}

	return body, resp.StatusCode, nil
}
