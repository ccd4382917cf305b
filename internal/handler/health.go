package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/crosscall-ai/translation-relay/internal/relaybus"
)

// Pinger checks session store connectivity. Nil when the in-memory store
// is in use.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	busClient *relaybus.Client
	store     Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(busClient *relaybus.Client, store Pinger) *HealthHandler {
	return &HealthHandler{busClient: busClient, store: store}
}

// Health handles GET /health: liveness only.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready: checks collaborator connectivity.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.busClient.IsConnected() {
		writeError(w, http.StatusServiceUnavailable, "nats not connected")
		return
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store not reachable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
