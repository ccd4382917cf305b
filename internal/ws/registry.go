// Package ws hosts the party websocket channels and the push registry
// that lets either leg's events reach the other leg's channel.
package ws

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/session"
)

// Registry tracks open party connections by connection ID. It implements
// the coordinator's PushChannel: a message relayed from one leg is written
// to the other leg's socket.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*party
}

// party serializes writes to one websocket; gorilla allows a single
// concurrent writer.
type party struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*party)}
}

// Register adds an open connection under its ID.
func (r *Registry) Register(connectionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connectionID] = &party{conn: conn}
}

// Unregister removes a connection. Safe to call for unknown IDs.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connectionID)
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Push delivers a relay message to a specific open party connection.
func (r *Registry) Push(ctx context.Context, connectionID string, msg model.RelayMessage) error {
	return r.send(connectionID, msg)
}

// SendError writes a structured error reply back on the channel that
// produced a failing event.
func (r *Registry) SendError(connectionID, description string) error {
	return r.send(connectionID, model.ErrorReply{Type: "error", Description: description})
}

func (r *Registry) send(connectionID string, v any) error {
	r.mu.RLock()
	p, ok := r.conns[connectionID]
	r.mu.RUnlock()

	if !ok {
		return session.ErrNotConnected
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(v)
}
