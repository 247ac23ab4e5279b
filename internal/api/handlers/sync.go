package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chittyos/registry-sync/internal/domain/resource"
	"github.com/chittyos/registry-sync/internal/pkg/errors"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/utils"
	"github.com/chittyos/registry-sync/internal/syncer"
	"github.com/chittyos/registry-sync/internal/worker"
)

// APIKeyHeader gates the manual-sync endpoint.
const APIKeyHeader = "X-API-Key"

// manualSyncKinds restricts what operators can trigger over HTTP.
var manualSyncKinds = map[string][]resource.Kind{
	"domains": {resource.KindDomain},
	"workers": {resource.KindWorker},
	"pages":   {resource.KindPages},
	"all":     nil, // orchestrator default: every kind
}

// SyncHandler triggers orchestrated sync runs on demand.
type SyncHandler struct {
	apiKey       string
	orchestrator *syncer.Orchestrator
	dispatcher   *worker.Dispatcher
	logger       *logger.Logger
}

// NewSyncHandler creates a new manual-sync handler
func NewSyncHandler(apiKey string, orchestrator *syncer.Orchestrator, dispatcher *worker.Dispatcher, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		apiKey:       apiKey,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		logger:       log,
	}
}

// Trigger processes POST /webhook/manual-sync/{resourceType}.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(APIKeyHeader)
	if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		utils.WriteError(w, errors.Unauthorized("invalid API key"))
		return
	}

	resourceType := chi.URLParam(r, "resourceType")
	kinds, ok := manualSyncKinds[resourceType]
	if !ok {
		utils.WriteError(w, errors.BadRequest("invalid resource type: "+resourceType))
		return
	}

	task := worker.Task{
		Key:  "manual-sync:" + resourceType,
		Name: "manual-sync",
		Run: func(ctx context.Context) {
			if _, err := h.orchestrator.Run(ctx, kinds); err != nil {
				h.logger.ErrorWithErr(err, "manual sync failed")
			}
		},
	}
	if err := h.dispatcher.Submit(task); err != nil {
		h.logger.ErrorWithErr(err, "manual sync rejected")
		utils.WriteError(w, errors.QueueFull())
		return
	}

	h.logger.Infof("manual sync started for %s", resourceType)
	utils.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":        "sync_started",
		"resource_type": resourceType,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}
