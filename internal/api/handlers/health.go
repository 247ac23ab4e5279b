package handlers

import (
	"net/http"
	"time"

	"github.com/chittyos/registry-sync/internal/pkg/utils"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	service string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health processes GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   h.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
