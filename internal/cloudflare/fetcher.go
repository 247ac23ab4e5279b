package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/chittyos/registry-sync/internal/domain/resource"
	"github.com/chittyos/registry-sync/internal/pkg/metrics"
)

// FetchKind fetches and normalizes all resources of one kind.
func (c *Client) FetchKind(ctx context.Context, kind resource.Kind) ([]resource.Record, error) {
	start := time.Now()

	var records []resource.Record
	var err error

	switch kind {
	case resource.KindDomain:
		records, err = c.fetchDomains(ctx)
	case resource.KindWorker:
		records, err = c.fetchWorkers(ctx)
	case resource.KindPages:
		records, err = c.fetchPages(ctx)
	case resource.KindR2Bucket:
		records, err = c.fetchR2Buckets(ctx)
	case resource.KindKVNamespace:
		records, err = c.fetchKVNamespaces(ctx)
	case resource.KindDurableObject:
		records, err = c.fetchDurableObjects(ctx)
	default:
		return nil, fmt.Errorf("unsupported resource kind: %s", kind)
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordFetch(string(kind), status, time.Since(start))

	return records, err
}

// FetchAll fetches every kind, isolating failures: a kind that fails is
// logged and yields an empty list while the others proceed.
func (c *Client) FetchAll(ctx context.Context) map[string][]resource.Record {
	out := make(map[string][]resource.Record, len(resource.AllKinds()))

	for _, kind := range resource.AllKinds() {
		records, err := c.FetchKind(ctx, kind)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"kind": string(kind),
			}).ErrorWithErr(err, "Failed to fetch resources")
			records = nil
		}
		out[kind.Key()] = records
	}

	return out
}

// item is the subset of fields shared by most Cloudflare list responses.
type item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	CreatedOn  string `json:"created_on"`
	ModifiedOn string `json:"modified_on"`
}

func (c *Client) fetchDomains(ctx context.Context) ([]resource.Record, error) {
	params := url.Values{}
	params.Set("account.id", c.accountID)
	params.Set("status", "active,pending,initializing,moved")

	raw, err := c.paginatedFetch(ctx, "zones", params)
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(raw))
	for _, r := range raw {
		var zone item
		if err := json.Unmarshal(r, &zone); err != nil {
			return nil, fmt.Errorf("failed to parse zone: %w", err)
		}
		records = append(records, resource.Record{
			ID:         zone.ID,
			Name:       zone.Name,
			Type:       resource.KindDomain,
			Status:     zone.Status,
			CreatedOn:  zone.CreatedOn,
			ModifiedOn: zone.ModifiedOn,
			Details:    r,
		})
	}
	return records, nil
}

// fetchWorkers lists worker scripts and fetches each script's detail. A
// failed detail call omits the item instead of aborting the batch, trading
// completeness for availability.
func (c *Client) fetchWorkers(ctx context.Context) ([]resource.Record, error) {
	endpoint := fmt.Sprintf("accounts/%s/workers/scripts", c.accountID)
	raw, err := c.paginatedFetch(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(raw))
	for _, r := range raw {
		var script item
		if err := json.Unmarshal(r, &script); err != nil {
			return nil, fmt.Errorf("failed to parse worker script: %w", err)
		}

		detail, err := c.getDetail(ctx, fmt.Sprintf("accounts/%s/workers/scripts/%s", c.accountID, script.ID))
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"script": script.ID,
			}).WithError(err).Warn("Skipping worker, detail fetch failed")
			continue
		}

		records = append(records, resource.Record{
			ID:         script.ID,
			Name:       script.ID,
			Type:       resource.KindWorker,
			CreatedOn:  script.CreatedOn,
			ModifiedOn: script.ModifiedOn,
			Details:    mergeDetails(r, detail),
		})
	}
	return records, nil
}

func (c *Client) fetchPages(ctx context.Context) ([]resource.Record, error) {
	endpoint := fmt.Sprintf("accounts/%s/pages/projects", c.accountID)
	raw, err := c.paginatedFetch(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(raw))
	for _, r := range raw {
		var project struct {
			item
			ProductionDeployments struct {
				LatestDeployment struct {
					CreatedOn string `json:"created_on"`
				} `json:"latest_deployment"`
			} `json:"production_deployments"`
		}
		if err := json.Unmarshal(r, &project); err != nil {
			return nil, fmt.Errorf("failed to parse pages project: %w", err)
		}

		records = append(records, resource.Record{
			ID:         project.ID,
			Name:       project.Name,
			Type:       resource.KindPages,
			CreatedOn:  project.CreatedOn,
			ModifiedOn: project.ProductionDeployments.LatestDeployment.CreatedOn,
			Details:    r,
		})
	}
	return records, nil
}

// fetchR2Buckets uses a non-paginated endpoint whose result nests the list
// under "buckets". Bucket names double as IDs.
func (c *Client) fetchR2Buckets(ctx context.Context) ([]resource.Record, error) {
	endpoint := fmt.Sprintf("accounts/%s/r2/buckets", c.accountID)
	env, err := c.do(ctx, "GET", endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Buckets []json.RawMessage `json:"buckets"`
	}
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to parse bucket list: %w", err)
		}
	}

	records := make([]resource.Record, 0, len(result.Buckets))
	for _, r := range result.Buckets {
		var bucket struct {
			Name         string `json:"name"`
			CreationDate string `json:"creation_date"`
		}
		if err := json.Unmarshal(r, &bucket); err != nil {
			return nil, fmt.Errorf("failed to parse bucket: %w", err)
		}
		records = append(records, resource.Record{
			ID:        bucket.Name,
			Name:      bucket.Name,
			Type:      resource.KindR2Bucket,
			CreatedOn: bucket.CreationDate,
			Details:   r,
		})
	}
	return records, nil
}

func (c *Client) fetchKVNamespaces(ctx context.Context) ([]resource.Record, error) {
	endpoint := fmt.Sprintf("accounts/%s/storage/kv/namespaces", c.accountID)
	raw, err := c.paginatedFetch(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(raw))
	for _, r := range raw {
		var ns item
		if err := json.Unmarshal(r, &ns); err != nil {
			return nil, fmt.Errorf("failed to parse KV namespace: %w", err)
		}
		records = append(records, resource.Record{
			ID:         ns.ID,
			Name:       ns.Title,
			Type:       resource.KindKVNamespace,
			CreatedOn:  ns.CreatedOn,
			ModifiedOn: ns.ModifiedOn,
			Details:    r,
		})
	}
	return records, nil
}

func (c *Client) fetchDurableObjects(ctx context.Context) ([]resource.Record, error) {
	endpoint := fmt.Sprintf("accounts/%s/workers/durable_objects/namespaces", c.accountID)
	raw, err := c.paginatedFetch(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	records := make([]resource.Record, 0, len(raw))
	for _, r := range raw {
		var ns item
		if err := json.Unmarshal(r, &ns); err != nil {
			return nil, fmt.Errorf("failed to parse durable object namespace: %w", err)
		}
		records = append(records, resource.Record{
			ID:         ns.ID,
			Name:       ns.Name,
			Type:       resource.KindDurableObject,
			CreatedOn:  ns.CreatedOn,
			ModifiedOn: ns.ModifiedOn,
			Details:    r,
		})
	}
	return records, nil
}

// mergeDetails folds a detail object's fields into a list item's fields.
// Detail fields win on collision.
func mergeDetails(listItem, detail json.RawMessage) json.RawMessage {
	var base, extra map[string]json.RawMessage
	if err := json.Unmarshal(listItem, &base); err != nil {
		return listItem
	}
	if err := json.Unmarshal(detail, &extra); err != nil {
		return listItem
	}
	for k, v := range extra {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return listItem
	}
	return merged
}
