// Package store provides the session store for connection, transcript,
// profile, and proxy-link records.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/crosscall-ai/translation-relay/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyLinked is returned by LinkCaller when the caller record
	// already has translation active. The two-phase link is conditional so
	// a duplicate callee setup cannot silently relink a conversation.
	ErrAlreadyLinked = errors.New("caller connection already linked")
)

// Config holds record time-to-live settings.
type Config struct {
	ConnectionTTL time.Duration
	TranscriptTTL time.Duration
	ProfileTTL    time.Duration // zero means profiles never expire
	ProxyTTL      time.Duration
}

// DefaultConfig mirrors the retention the original deployment used:
// session data expires after a day, proxy links within minutes.
func DefaultConfig() Config {
	return Config{
		ConnectionTTL: 24 * time.Hour,
		TranscriptTTL: 24 * time.Hour,
		ProxyTTL:      5 * time.Minute,
	}
}

// Store is the session store shared by all event invocations. It is the
// only shared mutable resource; every method is safe for concurrent use.
type Store interface {
	// PutConnection saves a connection record with overwrite semantics.
	PutConnection(ctx context.Context, conn *model.Connection) error
	// GetConnection retrieves a connection by ID.
	GetConnection(ctx context.Context, id string) (*model.Connection, error)
	// LinkCaller applies the callee's settings to the caller record and
	// flips TranslationActive, but only if it is currently false.
	LinkCaller(ctx context.Context, callerID string, link model.TargetLink) (*model.Connection, error)
	// MarkDisconnected flips a connection's call status to disconnected.
	MarkDisconnected(ctx context.Context, id string) error
	// ListConnections returns all unexpired connection records.
	ListConnections(ctx context.Context) ([]model.Connection, error)

	// AppendTranscript appends one utterance. Entries are never mutated.
	AppendTranscript(ctx context.Context, entry *model.TranscriptEntry) error
	// ListTranscript returns a conversation's entries in ascending
	// (TS, Seq) order.
	ListTranscript(ctx context.Context, parentConnectionID string) ([]model.TranscriptEntry, error)

	PutProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, phoneNumber string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	DeleteProfile(ctx context.Context, phoneNumber string) error

	PutProxyLink(ctx context.Context, link *model.ProxyLink) error
	GetProxyLink(ctx context.Context, number string) (*model.ProxyLink, error)
}

var stampSeq atomic.Uint64

// NewStamp returns the ordering key for a transcript entry: wall-clock
// milliseconds plus a process-wide monotonic sequence. The sequence keeps
// two utterances in the same millisecond from colliding.
func NewStamp() (int64, uint64) {
	return time.Now().UnixMilli(), stampSeq.Add(1)
}

// SortKey renders the composite ordering key. Zero-padded so the
// lexicographic order matches the chronological order.
func SortKey(ts int64, seq uint64) string {
	return fmt.Sprintf("spokenText::%013d-%08d", ts, seq)
}
