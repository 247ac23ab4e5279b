package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/chittyos/registry-sync/internal/api/middleware"
	"github.com/chittyos/registry-sync/internal/domain/resource"
	"github.com/chittyos/registry-sync/internal/pkg/errors"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/metrics"
	"github.com/chittyos/registry-sync/internal/pkg/utils"
	"github.com/chittyos/registry-sync/internal/statestore"
	"github.com/chittyos/registry-sync/internal/webhook"
	"github.com/chittyos/registry-sync/internal/worker"
	"github.com/chittyos/registry-sync/pkg/client"
)

// maxWebhookBody caps how much of a webhook request is read before the
// signature check.
const maxWebhookBody = 1 << 20

// WebhookHandler receives provider change events and applies them to the
// registry through the background dispatcher.
type WebhookHandler struct {
	secret     string
	dispatcher *worker.Dispatcher
	registry   *client.Client
	store      *statestore.Store
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(secret string, dispatcher *worker.Dispatcher, registry *client.Client, store *statestore.Store, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:     secret,
		dispatcher: dispatcher,
		registry:   registry,
		store:      store,
		logger:     log,
	}
}

// Handle processes POST /webhook/cloudflare. The signature is verified over
// the raw body before any parsing happens.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("failed to read request body"))
		return
	}

	signature := r.Header.Get(webhook.SignatureHeader)
	if !webhook.Verify(body, signature, h.secret) {
		h.logger.WithFields(map[string]interface{}{
			"request_id": middleware.GetRequestID(r),
			"ip":         r.RemoteAddr,
		}).Warn("webhook signature verification failed")
		metrics.RecordWebhookEvent("unknown", "bad_signature")
		utils.WriteError(w, errors.BadSignature())
		return
	}

	evt, eventType, recognized, err := webhook.ParseEvent(body)
	if err != nil {
		metrics.RecordWebhookEvent(eventType, "invalid")
		utils.WriteError(w, errors.BadRequest(err.Error()))
		return
	}
	if !recognized {
		h.logger.Debugf("ignoring unhandled webhook event: %s", eventType)
		metrics.RecordWebhookEvent(eventType, "ignored")
		utils.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"event":  eventType,
		})
		return
	}

	task := worker.Task{
		Key:  evt.ID,
		Name: eventType,
		Run:  h.applyEvent(evt),
	}
	if err := h.dispatcher.Submit(task); err != nil {
		h.logger.ErrorWithErr(err, "webhook task rejected")
		metrics.RecordWebhookEvent(eventType, "rejected")
		utils.WriteError(w, errors.QueueFull())
		return
	}

	metrics.RecordWebhookEvent(eventType, "accepted")
	utils.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":        "accepted",
		"event":         eventType,
		"resource_type": evt.Type.Key(),
		"action":        string(evt.Action),
	})
}

// applyEvent returns the background task body for one event. The task owns
// its own registry call and the event-log entry recording the outcome.
func (h *WebhookHandler) applyEvent(evt *resource.Event) func(ctx context.Context) {
	return func(ctx context.Context) {
		var err error
		switch evt.Action {
		case resource.ActionDelete:
			err = h.registry.Resources().Delete(ctx, evt.ID)
		default:
			err = h.registry.Resources().Register(ctx, client.Record{
				ID:      evt.ID,
				Name:    evt.Name,
				Type:    string(evt.Type),
				Details: evt.Data,
			})
		}

		entry := statestore.EventEntry{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Action:     string(evt.Action),
			Type:       string(evt.Type),
			ResourceID: evt.ID,
			Success:    err == nil,
		}
		if err != nil {
			entry.Error = err.Error()
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"resource_id": evt.ID,
				"action":      string(evt.Action),
			}).Error("failed to apply webhook event")
			metrics.RecordDispatchTask("error")
		} else {
			h.logger.WithFields(map[string]interface{}{
				"resource_id": evt.ID,
				"action":      string(evt.Action),
			}).Info("webhook event applied")
			metrics.RecordDispatchTask("ok")
		}

		if logErr := h.store.AppendEvent(entry); logErr != nil {
			h.logger.ErrorWithErr(logErr, "failed to append webhook event log")
		}
	}
}
