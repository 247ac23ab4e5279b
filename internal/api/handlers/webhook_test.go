package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/statestore"
	"github.com/chittyos/registry-sync/internal/webhook"
	"github.com/chittyos/registry-sync/internal/worker"
	"github.com/chittyos/registry-sync/pkg/client"
)

const testSecret = "webhook-secret"

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func newTestStore(t *testing.T) *statestore.Store {
	t.Helper()
	dir := t.TempDir()
	return statestore.New(statestore.Config{
		RunLogPath:   filepath.Join(dir, "sync_all.log"),
		EventLogPath: filepath.Join(dir, "webhook_events.log"),
		SnapshotPath: filepath.Join(dir, "full_sync_snapshot.json"),
	})
}

type registryCall struct {
	Method string
	Path   string
}

func newWebhookFixture(t *testing.T) (*WebhookHandler, *worker.Dispatcher, string, *[]registryCall) {
	t.Helper()

	var calls []registryCall
	registrySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, registryCall{Method: r.Method, Path: r.URL.Path})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(registrySrv.Close)

	registry := client.NewClient(client.Config{BaseURL: registrySrv.URL, APIKey: "rk"})
	dispatcher := worker.NewDispatcher(1, 16, testLogger())
	dispatcher.Start(context.Background())
	t.Cleanup(dispatcher.Stop)

	dir := t.TempDir()
	eventLog := filepath.Join(dir, "webhook_events.log")
	store := statestore.New(statestore.Config{
		RunLogPath:   filepath.Join(dir, "sync_all.log"),
		EventLogPath: eventLog,
		SnapshotPath: filepath.Join(dir, "full_sync_snapshot.json"),
	})
	h := NewWebhookHandler(testSecret, dispatcher, registry, store, testLogger())
	return h, dispatcher, eventLog, &calls
}

func signedRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/cloudflare", bytes.NewBufferString(body))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign([]byte(body), testSecret))
	return req
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, dispatcher, _, calls := newWebhookFixture(t)

	body := `{"event":{"type":"zone.created"},"data":{"id":"zone-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/cloudflare", bytes.NewBufferString(body))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign([]byte(body), "wrong-secret"))

	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	dispatcher.Stop()
	if len(*calls) != 0 {
		t.Errorf("registry called despite bad signature: %v", *calls)
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, _, _, _ := newWebhookFixture(t)

	body := `{"event":{"type":"zone.created"},"data":{"id":"zone-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/cloudflare", bytes.NewBufferString(body))

	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestWebhookIgnoresUnknownEvent(t *testing.T) {
	h, dispatcher, eventLog, calls := newWebhookFixture(t)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{"event":{"type":"dns.record.created"},"data":{"id":"rec-1"}}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
	if resp["event"] != "dns.record.created" {
		t.Errorf("event = %q", resp["event"])
	}

	dispatcher.Stop()
	if len(*calls) != 0 {
		t.Errorf("registry called for ignored event: %v", *calls)
	}

	// Ignored events do not reach the event log.
	if data, err := os.ReadFile(eventLog); err == nil && len(data) > 0 {
		t.Errorf("event log written for ignored event: %s", data)
	}
}

func TestWebhookAcceptsAndApplies(t *testing.T) {
	h, dispatcher, _, calls := newWebhookFixture(t)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{"event":{"type":"zone.created"},"data":{"id":"zone-1","name":"example.com"}}`))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "accepted" {
		t.Errorf("status = %q, want accepted", resp["status"])
	}
	if resp["resource_type"] != "domains" {
		t.Errorf("resource_type = %q, want domains", resp["resource_type"])
	}
	if resp["action"] != "create" {
		t.Errorf("action = %q, want create", resp["action"])
	}

	dispatcher.Stop()
	if len(*calls) != 1 {
		t.Fatalf("registry called %d times, want 1", len(*calls))
	}
	if (*calls)[0].Method != http.MethodPost || (*calls)[0].Path != "/api/resources" {
		t.Errorf("registry call = %+v, want POST /api/resources", (*calls)[0])
	}
}

func TestWebhookDeleteEvent(t *testing.T) {
	h, dispatcher, _, calls := newWebhookFixture(t)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{"event":{"type":"zone.deleted"},"data":{"id":"zone-9"}}`))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	dispatcher.Stop()
	if len(*calls) != 1 {
		t.Fatalf("registry called %d times, want 1", len(*calls))
	}
	if (*calls)[0].Method != http.MethodDelete || (*calls)[0].Path != "/api/resources/zone-9" {
		t.Errorf("registry call = %+v, want DELETE /api/resources/zone-9", (*calls)[0])
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	h, _, _, _ := newWebhookFixture(t)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{not json`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookMissingResourceID(t *testing.T) {
	h, _, _, _ := newWebhookFixture(t)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{"event":{"type":"zone.created"},"data":{"name":"example.com"}}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookQueueFull(t *testing.T) {
	registrySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(registrySrv.Close)
	registry := client.NewClient(client.Config{BaseURL: registrySrv.URL})

	// Never started: the queue fills and stays full.
	dispatcher := worker.NewDispatcher(1, 1, testLogger())
	h := NewWebhookHandler(testSecret, dispatcher, registry, newTestStore(t), testLogger())

	body := `{"event":{"type":"zone.created"},"data":{"id":"zone-1"}}`
	first := httptest.NewRecorder()
	h.Handle(first, signedRequest(t, body))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first request status = %d, want 202", first.Code)
	}

	second := httptest.NewRecorder()
	h.Handle(second, signedRequest(t, body))
	if second.Code != http.StatusServiceUnavailable {
		t.Errorf("second request status = %d, want 503", second.Code)
	}
}

func TestWebhookEventLogWritten(t *testing.T) {
	var calls []registryCall
	registrySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, registryCall{Method: r.Method, Path: r.URL.Path})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(registrySrv.Close)

	dir := t.TempDir()
	eventLog := filepath.Join(dir, "webhook_events.log")
	store := statestore.New(statestore.Config{
		RunLogPath:   filepath.Join(dir, "sync_all.log"),
		EventLogPath: eventLog,
		SnapshotPath: filepath.Join(dir, "full_sync_snapshot.json"),
	})

	registry := client.NewClient(client.Config{BaseURL: registrySrv.URL})
	dispatcher := worker.NewDispatcher(1, 16, testLogger())
	dispatcher.Start(context.Background())
	h := NewWebhookHandler(testSecret, dispatcher, registry, store, testLogger())

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(t, `{"event":{"type":"worker.deployed"},"data":{"id":"my-worker"}}`))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	dispatcher.Stop()

	deadline := time.Now().Add(2 * time.Second)
	var data []byte
	for time.Now().Before(deadline) {
		data, _ = os.ReadFile(eventLog)
		if len(data) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(data) == 0 {
		t.Fatal("event log not written")
	}

	var entry statestore.EventEntry
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse event log line %q: %v", line, err)
	}
	if entry.ResourceID != "my-worker" || entry.Action != "update" || !entry.Success {
		t.Errorf("entry = %+v", entry)
	}
}
