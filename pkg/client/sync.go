package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// SyncService performs full-replace syncs of one resource kind.
type SyncService struct {
	client *Client
}

// Replace pushes the complete current record set for one resource kind. The
// registry reconciles; the client does not diff. Calling it twice with the
// same records is idempotent.
func (s *SyncService) Replace(ctx context.Context, resourceType string, recs []Record) (*SyncResult, error) {
	body := map[string]interface{}{
		"provider":  Provider,
		"resources": recs,
		"sync_mode": "full",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	path := fmt.Sprintf("/api/sync/%s", url.PathEscape(resourceType))

	var result SyncResult
	if err := s.client.doRequest(ctx, "POST", path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
