package client

import (
	"encoding/json"
	"time"
)

// Provider is the provider label attached to every record this client
// registers.
const Provider = "cloudflare"

// Record is the normalized resource shape accepted by the registry.
type Record struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"resource_type"`
	Status     string          `json:"status,omitempty"`
	CreatedOn  string          `json:"created_on,omitempty"`
	ModifiedOn string          `json:"modified_on,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// registerPayload is the wire shape for register and bulk-register calls.
type registerPayload struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Provider  string         `json:"provider"`
	Metadata  recordMetadata `json:"metadata"`
	Timestamp string         `json:"timestamp,omitempty"`
}

type recordMetadata struct {
	Status     string          `json:"status,omitempty"`
	CreatedOn  string          `json:"created_on,omitempty"`
	ModifiedOn string          `json:"modified_on,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func toPayload(r Record, stamped bool) registerPayload {
	p := registerPayload{
		ID:       r.ID,
		Name:     r.Name,
		Type:     r.Type,
		Provider: Provider,
		Metadata: recordMetadata{
			Status:     r.Status,
			CreatedOn:  r.CreatedOn,
			ModifiedOn: r.ModifiedOn,
			Details:    r.Details,
		},
	}
	if stamped {
		p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return p
}

// RegisteredResource is a record as stored by the registry.
type RegisteredResource struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Type     string                 `json:"type"`
	Provider string                 `json:"provider"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SyncResult is the registry's response to a full-replace sync.
type SyncResult struct {
	Success bool   `json:"success"`
	Synced  int    `json:"synced"`
	Message string `json:"message,omitempty"`
}
