package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/chittyos/registry-sync/internal/domain/resource"
)

// eventMapping is the static table from provider event type to the
// resource kind and registry action it implies. Event types absent from
// the table are acknowledged but not acted upon.
var eventMapping = map[string]struct {
	Kind   resource.Kind
	Action resource.Action
}{
	"zone.created":             {resource.KindDomain, resource.ActionCreate},
	"zone.updated":             {resource.KindDomain, resource.ActionUpdate},
	"zone.deleted":             {resource.KindDomain, resource.ActionDelete},
	"worker.deployed":          {resource.KindWorker, resource.ActionUpdate},
	"worker.deleted":           {resource.KindWorker, resource.ActionDelete},
	"pages.project.created":    {resource.KindPages, resource.ActionCreate},
	"pages.deployment.started": {resource.KindPages, resource.ActionUpdate},
	"pages.project.deleted":    {resource.KindPages, resource.ActionDelete},
}

// payload is the provider event envelope.
type payload struct {
	Event struct {
		Type string `json:"type"`
	} `json:"event"`
	Data json.RawMessage `json:"data"`
}

// dataFields are the identifying fields pulled from the event's resource
// fragment.
type dataFields struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParseEvent decodes a raw webhook body and maps it to a resource event.
// recognized is false for well-formed events whose type has no mapping.
func ParseEvent(body []byte) (evt *resource.Event, eventType string, recognized bool, err error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, "", false, fmt.Errorf("failed to parse event payload: %w", err)
	}

	mapping, ok := eventMapping[p.Event.Type]
	if !ok {
		return nil, p.Event.Type, false, nil
	}

	var fields dataFields
	if len(p.Data) > 0 {
		if err := json.Unmarshal(p.Data, &fields); err != nil {
			return nil, p.Event.Type, true, fmt.Errorf("failed to parse event data: %w", err)
		}
	}
	if fields.ID == "" {
		return nil, p.Event.Type, true, fmt.Errorf("event data missing resource id")
	}

	return &resource.Event{
		Type:   mapping.Kind,
		Action: mapping.Action,
		ID:     fields.ID,
		Name:   fields.Name,
		Data:   p.Data,
	}, p.Event.Type, true, nil
}

// KnownEventTypes returns the event types the listener acts upon.
func KnownEventTypes() []string {
	types := make([]string, 0, len(eventMapping))
	for t := range eventMapping {
		types = append(types, t)
	}
	return types
}
