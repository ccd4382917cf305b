// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/middleware"
	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
)

// ConversationHandler handles conversation inspection endpoints.
type ConversationHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st store.Store, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		logger: log,
	}
}

// ListConnectionsResponse is the response for listing party connections.
type ListConnectionsResponse struct {
	Connections []model.Connection `json:"connections"`
	Total       int                `json:"total"`
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conns, err := h.store.ListConnections(ctx)
	if err != nil {
		h.logger.Error("failed to list connections", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}

	writeJSON(w, http.StatusOK, ListConnectionsResponse{
		Connections: conns,
		Total:       len(conns),
	})
}

// Active handles GET /api/v1/conversations/active?phone=+15551234567
//
// Returns the transcript of the live conversation whose caller leg
// originates from the given number. Used by agent tooling to pull up the
// conversation the moment the second leg answers.
func (h *ConversationHandler) Active(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	phone := r.URL.Query().Get("phone")

	if err := middleware.ValidatePhoneNumber(phone); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conns, err := h.store.ListConnections(ctx)
	if err != nil {
		h.logger.Error("failed to list connections", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}

	for _, conn := range conns {
		if conn.WhichParty != model.PartyCaller || conn.CallStatus != model.CallStatusConnected {
			continue
		}
		if conn.From != phone {
			continue
		}
		entries, err := h.store.ListTranscript(ctx, conn.ParentConnectionID)
		if err != nil {
			h.logger.Error("failed to list transcript",
				zap.String("parent_connection_id", conn.ParentConnectionID),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load transcript")
			return
		}
		writeJSON(w, http.StatusOK, model.TranscriptResponse{
			ParentConnectionID: conn.ParentConnectionID,
			Entries:            entries,
		})
		return
	}

	writeError(w, http.StatusNotFound, "no active conversation for phone number")
}

// Transcript handles GET /api/v1/conversations/:id/transcript
func (h *ConversationHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentConnectionID := chi.URLParam(r, "id")

	if err := middleware.ValidateConnectionID(parentConnectionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.store.ListTranscript(ctx, parentConnectionID)
	if err != nil {
		h.logger.Error("failed to list transcript",
			zap.String("parent_connection_id", parentConnectionID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	writeJSON(w, http.StatusOK, model.TranscriptResponse{
		ParentConnectionID: parentConnectionID,
		Entries:            entries,
	})
}
