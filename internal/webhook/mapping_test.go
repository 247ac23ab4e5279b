package webhook

import (
	"testing"

	"github.com/chittyos/registry-sync/internal/domain/resource"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantType       resource.Kind
		wantAction     resource.Action
		wantID         string
		wantEventType  string
		wantRecognized bool
		wantErr        bool
	}{
		{
			name:           "zone created",
			body:           `{"event":{"type":"zone.created"},"data":{"id":"zone-1","name":"example.com"}}`,
			wantType:       resource.KindDomain,
			wantAction:     resource.ActionCreate,
			wantID:         "zone-1",
			wantEventType:  "zone.created",
			wantRecognized: true,
		},
		{
			name:           "zone deleted",
			body:           `{"event":{"type":"zone.deleted"},"data":{"id":"zone-1"}}`,
			wantType:       resource.KindDomain,
			wantAction:     resource.ActionDelete,
			wantID:         "zone-1",
			wantEventType:  "zone.deleted",
			wantRecognized: true,
		},
		{
			name:           "worker deployed maps to update",
			body:           `{"event":{"type":"worker.deployed"},"data":{"id":"my-worker"}}`,
			wantType:       resource.KindWorker,
			wantAction:     resource.ActionUpdate,
			wantID:         "my-worker",
			wantEventType:  "worker.deployed",
			wantRecognized: true,
		},
		{
			name:           "pages deployment started",
			body:           `{"event":{"type":"pages.deployment.started"},"data":{"id":"proj-1"}}`,
			wantType:       resource.KindPages,
			wantAction:     resource.ActionUpdate,
			wantID:         "proj-1",
			wantEventType:  "pages.deployment.started",
			wantRecognized: true,
		},
		{
			name:           "unknown event type is not an error",
			body:           `{"event":{"type":"dns.record.created"},"data":{"id":"rec-1"}}`,
			wantEventType:  "dns.record.created",
			wantRecognized: false,
		},
		{
			name:    "malformed body",
			body:    `{not json`,
			wantErr: true,
		},
		{
			name:           "recognized event missing resource id",
			body:           `{"event":{"type":"zone.created"},"data":{"name":"example.com"}}`,
			wantEventType:  "zone.created",
			wantRecognized: true,
			wantErr:        true,
		},
		{
			name:           "recognized event with no data",
			body:           `{"event":{"type":"zone.created"}}`,
			wantEventType:  "zone.created",
			wantRecognized: true,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, eventType, recognized, err := ParseEvent([]byte(tt.body))

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if eventType != tt.wantEventType {
				t.Errorf("eventType = %q, want %q", eventType, tt.wantEventType)
			}
			if recognized != tt.wantRecognized {
				t.Errorf("recognized = %v, want %v", recognized, tt.wantRecognized)
			}
			if tt.wantErr || !tt.wantRecognized {
				if tt.wantErr && evt != nil {
					t.Errorf("expected nil event on error, got %+v", evt)
				}
				return
			}

			if evt.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", evt.Type, tt.wantType)
			}
			if evt.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", evt.Action, tt.wantAction)
			}
			if evt.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", evt.ID, tt.wantID)
			}
		})
	}
}

func TestKnownEventTypes(t *testing.T) {
	types := KnownEventTypes()
	if len(types) != len(eventMapping) {
		t.Fatalf("KnownEventTypes() returned %d types, want %d", len(types), len(eventMapping))
	}
	for _, typ := range types {
		if _, ok := eventMapping[typ]; !ok {
			t.Errorf("KnownEventTypes() includes unmapped type %q", typ)
		}
	}
}
