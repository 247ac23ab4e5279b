package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EnsureKVNamespace returns the ID of the KV namespace with the given
// title, creating it when absent.
func (c *Client) EnsureKVNamespace(ctx context.Context, title string) (string, error) {
	endpoint := fmt.Sprintf("accounts/%s/storage/kv/namespaces", c.accountID)

	body, _ := json.Marshal(map[string]string{"title": title})
	env, err := c.do(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err == nil {
		var ns struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(env.Result, &ns); err != nil {
			return "", fmt.Errorf("failed to parse created namespace: %w", err)
		}
		return ns.ID, nil
	}

	// Creation fails when the namespace already exists; look it up instead.
	raw, listErr := c.paginatedFetch(ctx, endpoint, nil)
	if listErr != nil {
		return "", fmt.Errorf("failed to create or list KV namespaces: %w", listErr)
	}
	for _, r := range raw {
		var ns struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(r, &ns); err != nil {
			continue
		}
		if ns.Title == title {
			return ns.ID, nil
		}
	}

	return "", fmt.Errorf("KV namespace %q not found: %w", title, err)
}

// PutKVValue writes a JSON value under a key in the given KV namespace.
func (c *Client) PutKVValue(ctx context.Context, namespaceID, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal KV value: %w", err)
	}

	endpoint := fmt.Sprintf("accounts/%s/storage/kv/namespaces/%s/values/%s", c.accountID, namespaceID, key)
	u := c.baseURL + "/" + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Auth-Email", c.email)
	req.Header.Set("X-Auth-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("KV write failed: %d - %s", resp.StatusCode, string(respBody))
	}
	return nil
}
