package resource

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies a category of Cloudflare resource tracked by the registry.
type Kind string

const (
	KindDomain        Kind = "domain"
	KindWorker        Kind = "worker"
	KindPages         Kind = "pages"
	KindR2Bucket      Kind = "r2_bucket"
	KindKVNamespace   Kind = "kv_namespace"
	KindDurableObject Kind = "durable_object"
)

// AllKinds lists every supported kind in sync order.
func AllKinds() []Kind {
	return []Kind{
		KindDomain,
		KindWorker,
		KindPages,
		KindR2Bucket,
		KindKVNamespace,
		KindDurableObject,
	}
}

// kindKeys maps the plural keys used by the CLI, the snapshot file and the
// manual-sync endpoint to their kind.
var kindKeys = map[string]Kind{
	"domains":         KindDomain,
	"workers":         KindWorker,
	"pages":           KindPages,
	"r2_buckets":      KindR2Bucket,
	"kv_namespaces":   KindKVNamespace,
	"durable_objects": KindDurableObject,
}

// KindFromKey resolves a plural resource key (e.g. "domains") to its Kind.
func KindFromKey(key string) (Kind, error) {
	k, ok := kindKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown resource type: %s", key)
	}
	return k, nil
}

// Key returns the plural key for a kind ("domain" -> "domains").
func (k Kind) Key() string {
	for key, kind := range kindKeys {
		if kind == k {
			return key
		}
	}
	return string(k)
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	_, ok := kindKeys[k.Key()]
	return ok
}

// Record is the normalized unit moved through the whole pipeline. The
// (ID, Type) pair is unique within one provider account and is the
// registry's external key. Records are never mutated in place: each sync
// produces a fresh record that replaces the prior one registry-side.
type Record struct {
	ID         string          `json:"id" validate:"required"`
	Name       string          `json:"name"`
	Type       Kind            `json:"resource_type" validate:"required"`
	Status     string          `json:"status,omitempty"`
	CreatedOn  string          `json:"created_on,omitempty"`
	ModifiedOn string          `json:"modified_on,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Summary is the outcome of one sync run. A kind appears in at most one of
// Synced and Errors; Total is the sum of Synced counts.
type Summary struct {
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id,omitempty"`
	Synced    map[string]int    `json:"synced"`
	Errors    map[string]string `json:"errors"`
	Total     int               `json:"total"`
}

// NewSummary creates an empty summary stamped at the start of a run.
func NewSummary(runID string) *Summary {
	return &Summary{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Synced:    make(map[string]int),
		Errors:    make(map[string]string),
	}
}

// RecordSynced records a successful per-kind sync.
func (s *Summary) RecordSynced(kind Kind, count int) {
	s.Synced[kind.Key()] = count
	s.Total += count
}

// RecordError records a per-kind failure.
func (s *Summary) RecordError(kind Kind, msg string) {
	s.Errors[kind.Key()] = msg
}

// OK reports whether the run completed without any per-kind error. Partial
// success is recorded, not hidden, but the run as a whole is a failure.
func (s *Summary) OK() bool {
	return len(s.Errors) == 0
}

// Action is what a webhook event asks the registry to do with a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is a provider-pushed change notification. It is transient: mapped
// immediately to a (Kind, Action) pair plus a Record fragment, then handed
// to the dispatcher.
type Event struct {
	Type   Kind            `json:"resource_type"`
	Action Action          `json:"action"`
	ID     string          `json:"resource_id"`
	Name   string          `json:"name,omitempty"`
	Data   json.RawMessage `json:"-"`
}

// Snapshot is the latest full resource set plus the summary that produced
// it. It is always written whole, never merged with prior runs.
type Snapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Resources map[string][]Record `json:"resources"`
	Summary   *Summary            `json:"summary"`
}
