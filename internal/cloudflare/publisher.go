package cloudflare

import (
	"context"

	"github.com/chittyos/registry-sync/internal/domain/resource"
)

// SnapshotPublisher mirrors each sync snapshot into a Workers KV namespace
// so the full resource set is readable from the edge.
type SnapshotPublisher struct {
	client *Client
	title  string

	// namespaceID is resolved on first publish and cached.
	namespaceID string
}

// NewSnapshotPublisher creates a publisher targeting the KV namespace with
// the given title.
func NewSnapshotPublisher(c *Client, title string) *SnapshotPublisher {
	return &SnapshotPublisher{client: c, title: title}
}

// PublishSnapshot writes the snapshot's resource set under the "registry"
// key, creating the namespace when absent.
func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, snap *resource.Snapshot) error {
	if p.namespaceID == "" {
		id, err := p.client.EnsureKVNamespace(ctx, p.title)
		if err != nil {
			return err
		}
		p.namespaceID = id
	}

	return p.client.PutKVValue(ctx, p.namespaceID, "registry", snap.Resources)
}
