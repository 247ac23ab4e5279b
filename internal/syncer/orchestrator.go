// Package syncer coordinates fetch -> transform -> push across resource
// kinds and persists each run's outcome.
package syncer

import (
	"context"

	"github.com/google/uuid"

	"github.com/chittyos/registry-sync/internal/domain/resource"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/metrics"
	"github.com/chittyos/registry-sync/internal/pkg/validator"
	"github.com/chittyos/registry-sync/internal/statestore"
	"github.com/chittyos/registry-sync/pkg/client"
)

// Fetcher fetches all resources of one kind from the provider.
type Fetcher interface {
	FetchKind(ctx context.Context, kind resource.Kind) ([]resource.Record, error)
}

// Registry is the subset of registry operations the orchestrator needs.
type Registry interface {
	ReplaceKind(ctx context.Context, resourceType string, recs []client.Record) (*client.SyncResult, error)
	Healthy(ctx context.Context) bool
}

// Publisher optionally publishes each snapshot somewhere else (e.g. a
// Workers KV namespace).
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *resource.Snapshot) error
}

// Orchestrator runs sync passes over one or more resource kinds.
type Orchestrator struct {
	fetcher   Fetcher
	registry  Registry
	store     *statestore.Store
	publisher Publisher
	validate  *validator.Validator
	logger    *logger.Logger
}

// New creates an orchestrator. publisher may be nil.
func New(fetcher Fetcher, registry Registry, store *statestore.Store, publisher Publisher, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		registry:  registry,
		store:     store,
		publisher: publisher,
		validate:  validator.New(),
		logger:    log,
	}
}

// Run fetches and syncs the given kinds (all kinds when empty), returning
// the run summary. Kinds are processed sequentially and in isolation: a
// failure in one never stops the others. The summary is persisted to the
// run log and the latest snapshot before returning.
func (o *Orchestrator) Run(ctx context.Context, kinds []resource.Kind) (*resource.Summary, error) {
	if len(kinds) == 0 {
		kinds = resource.AllKinds()
	}

	runID := uuid.New().String()
	summary := resource.NewSummary(runID)
	log := o.logger.With("run_id", runID)

	log.WithFields(map[string]interface{}{
		"kinds": len(kinds),
	}).Info("Starting sync run")

	if !o.registry.Healthy(ctx) {
		// Advisory only: the health endpoint may be flaky while writes
		// still succeed.
		log.Warn("Registry health check failed, continuing anyway")
	}

	allResources := make(map[string][]resource.Record, len(kinds))

	for _, kind := range kinds {
		records, err := o.fetcher.FetchKind(ctx, kind)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"kind": string(kind),
			}).ErrorWithErr(err, "Failed to fetch resources")
			summary.RecordError(kind, err.Error())
			continue
		}

		records = o.validRecords(kind, records, log)
		allResources[kind.Key()] = records

		if len(records) == 0 {
			log.WithFields(map[string]interface{}{
				"kind": string(kind),
			}).Info("No resources found to sync")
			continue
		}

		if err := o.syncKind(ctx, kind, records); err != nil {
			log.WithFields(map[string]interface{}{
				"kind":  string(kind),
				"count": len(records),
			}).ErrorWithErr(err, "Failed to sync resources")
			summary.RecordError(kind, err.Error())
			metrics.RecordSync(string(kind), "error")
			continue
		}

		summary.RecordSynced(kind, len(records))
		metrics.RecordSync(string(kind), "success")
		metrics.SetSyncedResources(string(kind), float64(len(records)))
		log.WithFields(map[string]interface{}{
			"kind":  string(kind),
			"count": len(records),
		}).Info("Synced resources")
	}

	snap := &resource.Snapshot{
		Timestamp: summary.Timestamp,
		Resources: allResources,
		Summary:   summary,
	}

	if err := o.store.AppendRun(summary); err != nil {
		log.ErrorWithErr(err, "Failed to append run log")
	}
	if err := o.store.WriteSnapshot(snap); err != nil {
		log.ErrorWithErr(err, "Failed to write snapshot")
	}

	if o.publisher != nil {
		if err := o.publisher.PublishSnapshot(ctx, snap); err != nil {
			log.ErrorWithErr(err, "Failed to publish snapshot")
		}
	}

	log.WithFields(map[string]interface{}{
		"total":  summary.Total,
		"errors": len(summary.Errors),
	}).Info("Sync run complete")

	return summary, nil
}

// validRecords drops records the registry would reject, keeping the rest of
// the batch syncable.
func (o *Orchestrator) validRecords(kind resource.Kind, records []resource.Record, log *logger.Logger) []resource.Record {
	out := records[:0]
	for _, r := range records {
		if verrs := o.validate.Validate(r); len(verrs) > 0 {
			log.WithFields(map[string]interface{}{
				"kind":  string(kind),
				"id":    r.ID,
				"field": verrs[0].Field,
			}).Warn("Dropping invalid record")
			continue
		}
		out = append(out, r)
	}
	return out
}

func (o *Orchestrator) syncKind(ctx context.Context, kind resource.Kind, records []resource.Record) error {
	result, err := o.registry.ReplaceKind(ctx, string(kind), toClientRecords(records))
	if err != nil {
		return err
	}
	if result != nil && !result.Success {
		return &client.APIError{Message: result.Message}
	}
	return nil
}

func toClientRecords(records []resource.Record) []client.Record {
	out := make([]client.Record, 0, len(records))
	for _, r := range records {
		out = append(out, client.Record{
			ID:         r.ID,
			Name:       r.Name,
			Type:       string(r.Type),
			Status:     r.Status,
			CreatedOn:  r.CreatedOn,
			ModifiedOn: r.ModifiedOn,
			Details:    r.Details,
		})
	}
	return out
}

// RegistryAdapter adapts *client.Client to the Registry interface.
type RegistryAdapter struct {
	Client *client.Client
}

// ReplaceKind implements Registry.
func (a *RegistryAdapter) ReplaceKind(ctx context.Context, resourceType string, recs []client.Record) (*client.SyncResult, error) {
	return a.Client.Sync().Replace(ctx, resourceType, recs)
}

// Healthy implements Registry.
func (a *RegistryAdapter) Healthy(ctx context.Context) bool {
	return a.Client.Health(ctx)
}
