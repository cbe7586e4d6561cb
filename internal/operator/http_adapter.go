package operator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPIntegrationAdapter implements IntegrationAdapter over plain JSON/HTTP
// POST requests, the shape every external system an IntegrationOperator
// task names in its "endpoint" config is assumed to expose.
type HTTPIntegrationAdapter struct {
	client  *http.Client
	baseURL string
}

// NewHTTPIntegrationAdapter builds an adapter that resolves a task's
// "endpoint" against baseURL. client may be nil, in which case a client
// with a conservative default timeout is used.
func NewHTTPIntegrationAdapter(baseURL string, client *http.Client) *HTTPIntegrationAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPIntegrationAdapter{client: client, baseURL: baseURL}
}

func (a *HTTPIntegrationAdapter) Call(ctx context.Context, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("call %s: status %d", endpoint, resp.StatusCode)
	}

	var out map[string]interface{}
	if resp.ContentLength != 0 {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode response from %s: %w", endpoint, err)
		}
	}
	return out, nil
}
