package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// ResourceService handles single and bulk resource registration.
type ResourceService struct {
	client *Client
}

// Register creates or replaces one resource in the registry.
func (s *ResourceService) Register(ctx context.Context, rec Record) error {
	return s.client.doRequest(ctx, "POST", "/api/resources", toPayload(rec, true), nil)
}

// Update applies a partial update to a registered resource.
func (s *ResourceService) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	body := map[string]interface{}{
		"updates":   updates,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	path := fmt.Sprintf("/api/resources/%s", url.PathEscape(id))
	return s.client.doRequest(ctx, "PATCH", path, body, nil)
}

// Delete removes a resource from the registry.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/resources/%s", url.PathEscape(id))
	return s.client.doRequest(ctx, "DELETE", path, nil, nil)
}

// BulkRegister registers many resources in one call.
func (s *ResourceService) BulkRegister(ctx context.Context, recs []Record) error {
	payloads := make([]registerPayload, 0, len(recs))
	for _, r := range recs {
		payloads = append(payloads, toPayload(r, false))
	}
	body := map[string]interface{}{
		"resources": payloads,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	return s.client.doRequest(ctx, "POST", "/api/resources/bulk", body, nil)
}

// List retrieves registered resources, optionally filtered by type.
func (s *ResourceService) List(ctx context.Context, resourceType string) ([]RegisteredResource, error) {
	query := url.Values{}
	query.Set("provider", Provider)
	if resourceType != "" {
		query.Set("type", resourceType)
	}

	var response struct {
		Resources []RegisteredResource `json:"resources"`
	}
	if err := s.client.doRequest(ctx, "GET", "/api/resources?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}

	return response.Resources, nil
}
