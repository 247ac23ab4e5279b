package handlers

import (
	"net/http"
	"time"

	"github.com/chittyos/registry-sync/internal/pkg/errors"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/utils"
	"github.com/chittyos/registry-sync/internal/statestore"
)

// StatusHandler reports the outcome of the most recent sync run.
type StatusHandler struct {
	store  *statestore.Store
	logger *logger.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(store *statestore.Store, log *logger.Logger) *StatusHandler {
	return &StatusHandler{store: store, logger: log}
}

// Status processes GET /status. A missing run log is reported as state,
// not as an error.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.LatestSummary()
	if err != nil {
		h.logger.ErrorWithErr(err, "failed to read run log")
		utils.WriteError(w, errors.Internal("failed to read sync state", err))
		return
	}

	if summary == nil {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "no_sync_yet",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "operational",
		"last_sync":        summary.Timestamp.Format(time.RFC3339),
		"run_id":           summary.RunID,
		"resources_synced": summary.Synced,
		"errors":           summary.Errors,
		"total":            summary.Total,
		"success":          summary.OK(),
	})
}
