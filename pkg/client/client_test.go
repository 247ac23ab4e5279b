package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
}

func TestRegisterPayloadShape(t *testing.T) {
	var captured map[string]interface{}
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/resources", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusCreated)
	})

	err := c.Resources().Register(context.Background(), Record{
		ID:         "zone-1",
		Name:       "example.com",
		Type:       "domain",
		Status:     "active",
		CreatedOn:  "2026-01-01T00:00:00Z",
		ModifiedOn: "2026-02-01T00:00:00Z",
		Details:    json.RawMessage(`{"paused":false}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "zone-1", captured["id"])
	assert.Equal(t, "example.com", captured["name"])
	assert.Equal(t, "domain", captured["type"])
	assert.Equal(t, "cloudflare", captured["provider"])
	assert.NotEmpty(t, captured["timestamp"])

	metadata, ok := captured["metadata"].(map[string]interface{})
	require.True(t, ok, "metadata missing from payload")
	assert.Equal(t, "active", metadata["status"])
	assert.Equal(t, "2026-01-01T00:00:00Z", metadata["created_on"])
	assert.Equal(t, map[string]interface{}{"paused": false}, metadata["details"])
}

func TestUpdateAndDelete(t *testing.T) {
	var method, path string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	err := c.Resources().Update(context.Background(), "zone-1", map[string]interface{}{"status": "paused"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "/api/resources/zone-1", path)

	err = c.Resources().Delete(context.Background(), "zone-1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/resources/zone-1", path)
}

func TestBulkRegister(t *testing.T) {
	var captured map[string]interface{}
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/resources/bulk", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusOK)
	})

	err := c.Resources().BulkRegister(context.Background(), []Record{
		{ID: "w-1", Type: "worker"},
		{ID: "w-2", Type: "worker"},
	})
	require.NoError(t, err)

	resources, ok := captured["resources"].([]interface{})
	require.True(t, ok)
	assert.Len(t, resources, 2)
	first := resources[0].(map[string]interface{})
	assert.Equal(t, "cloudflare", first["provider"])
}

func TestSyncReplace(t *testing.T) {
	var captured map[string]interface{}
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sync/domain", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		json.NewEncoder(w).Encode(SyncResult{Success: true, Synced: 2})
	})

	result, err := c.Sync().Replace(context.Background(), "domain", []Record{
		{ID: "z1", Type: "domain"},
		{ID: "z2", Type: "domain"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Synced)

	assert.Equal(t, "full", captured["sync_mode"])
	assert.Equal(t, "cloudflare", captured["provider"])
	assert.NotEmpty(t, captured["timestamp"])
}

func TestList(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cloudflare", r.URL.Query().Get("provider"))
		assert.Equal(t, "domain", r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"resources": []RegisteredResource{
				{ID: "z1", Name: "example.com", Type: "domain", Provider: "cloudflare"},
			},
		})
	})

	resources, err := c.Resources().List(context.Background(), "domain")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "z1", resources[0].ID)
}

// fakeRegistry is a minimal in-memory registry: registered and synced
// records are stored and served back, so round-trip and idempotence
// behaviour can be asserted rather than just wire shapes.
type fakeRegistry struct {
	mu    sync.Mutex
	store map[string]RegisteredResource
}

func newFakeRegistry(t *testing.T) (*fakeRegistry, *Client) {
	t.Helper()
	f := &fakeRegistry{store: make(map[string]RegisteredResource)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/resources":
		var p struct {
			ID       string                 `json:"id"`
			Name     string                 `json:"name"`
			Type     string                 `json:"type"`
			Provider string                 `json:"provider"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.store[p.ID] = RegisteredResource{
			ID:       p.ID,
			Name:     p.Name,
			Type:     p.Type,
			Provider: p.Provider,
			Metadata: p.Metadata,
		}
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodGet && r.URL.Path == "/api/resources":
		want := r.URL.Query().Get("type")
		out := make([]RegisteredResource, 0)
		for _, res := range f.store {
			if want == "" || res.Type == want {
				out = append(out, res)
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"resources": out})

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/sync/"):
		resourceType := strings.TrimPrefix(r.URL.Path, "/api/sync/")
		var body struct {
			Resources []Record `json:"resources"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for id, res := range f.store {
			if res.Type == resourceType {
				delete(f.store, id)
			}
		}
		for _, rec := range body.Resources {
			f.store[rec.ID] = RegisteredResource{
				ID:       rec.ID,
				Name:     rec.Name,
				Type:     rec.Type,
				Provider: Provider,
			}
		}
		json.NewEncoder(w).Encode(SyncResult{Success: true, Synced: len(body.Resources)})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRegisterListRoundTrip(t *testing.T) {
	_, c := newFakeRegistry(t)

	err := c.Resources().Register(context.Background(), Record{
		ID:     "zone-1",
		Name:   "example.com",
		Type:   "domain",
		Status: "active",
	})
	require.NoError(t, err)
	err = c.Resources().Register(context.Background(), Record{
		ID:   "worker-1",
		Name: "edge-router",
		Type: "worker",
	})
	require.NoError(t, err)

	domains, err := c.Resources().List(context.Background(), "domain")
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "zone-1", domains[0].ID)
	assert.Equal(t, "example.com", domains[0].Name)
	assert.Equal(t, "cloudflare", domains[0].Provider)
}

func TestSyncReplaceIdempotent(t *testing.T) {
	_, c := newFakeRegistry(t)

	records := []Record{
		{ID: "z1", Name: "a.example", Type: "domain"},
		{ID: "z2", Name: "b.example", Type: "domain"},
		{ID: "z3", Name: "c.example", Type: "domain"},
	}

	first, err := c.Sync().Replace(context.Background(), "domain", records)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Synced)

	second, err := c.Sync().Replace(context.Background(), "domain", records)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Synced)

	stored, err := c.Resources().List(context.Background(), "domain")
	require.NoError(t, err)
	require.Len(t, stored, 3, "repeated full sync must not duplicate records")

	seen := make(map[string]bool)
	for _, res := range stored {
		assert.False(t, seen[res.ID], "duplicate id %s", res.ID)
		seen[res.ID] = true
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "NOT_FOUND",
			"message": "resource not found",
		})
	})

	err := c.Resources().Delete(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
	assert.False(t, apiErr.IsServerError())
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "resource not found")
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	})

	err := c.Resources().Register(context.Background(), Record{ID: "z1", Type: "domain"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "upstream timeout", apiErr.Message)
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.True(t, healthy.Health(context.Background()))

	unhealthy := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.False(t, unhealthy.Health(context.Background()))
}
