package client

import (
	"context"
	"net/http"
)

// Health performs a lightweight liveness probe against the registry. The
// result is advisory: callers log a warning on false and proceed, since the
// health endpoint may be flaky while writes still succeed.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
