package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/session"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
	"github.com/crosscall-ai/translation-relay/pkg/metrics"
)

// The call platform connects server-to-server; there is no browser origin
// to check.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades party channels and feeds their lifecycle events to the
// coordinator, one event per message. Each event is an independent
// invocation; concurrency lives across channels, not within one.
type Handler struct {
	registry    *Registry
	coordinator *session.Coordinator
	logger      *logger.Logger
}

// NewHandler creates a party channel handler.
func NewHandler(registry *Registry, coordinator *session.Coordinator, log *logger.Logger) *Handler {
	return &Handler{
		registry:    registry,
		coordinator: coordinator,
		logger:      log,
	}
}

// Serve handles GET /ws: one websocket per party leg.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connectionID := uuid.New().String()
	h.registry.Register(connectionID, conn)
	metrics.PartyConnectionsActive.Inc()

	h.logger.Info("party channel opened", zap.String("connection_id", connectionID))

	defer func() {
		h.registry.Unregister(connectionID)
		metrics.PartyConnectionsActive.Dec()
		conn.Close()

		// The request context is gone once the channel closes; the
		// disconnect transition still has to land in the store.
		if err := h.coordinator.HandleDisconnect(context.Background(), connectionID); err != nil {
			h.logger.Error("disconnect handling failed",
				zap.String("connection_id", connectionID),
				zap.Error(err),
			)
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("party channel read error",
					zap.String("connection_id", connectionID),
					zap.Error(err),
				)
			}
			return
		}

		var evt model.LifecycleEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			h.logger.Warn("malformed lifecycle event",
				zap.String("connection_id", connectionID),
				zap.Error(err),
			)
			_ = h.registry.SendError(connectionID, "invalid message received")
			continue
		}

		// Errors stop at this boundary: the event fails, the channel and
		// process survive.
		if err := h.coordinator.HandleEvent(r.Context(), connectionID, &evt); err != nil {
			h.logger.Error("event handling failed",
				zap.String("connection_id", connectionID),
				zap.String("type", string(evt.Type)),
				zap.Error(err),
			)
			_ = h.registry.SendError(connectionID, err.Error())
		}
	}
}
