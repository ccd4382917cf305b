package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crosscall-ai/translation-relay/internal/model"
)

// Memory is an in-process Store used for local development and tests.
// Records carry the same TTLs as the Redis store but are only reaped
// lazily, on read.
type Memory struct {
	cfg Config

	mu          sync.RWMutex
	connections map[string]*memRecord[model.Connection]
	transcripts map[string][]model.TranscriptEntry
	trDeadline  map[string]time.Time
	profiles    map[string]*model.Profile
	proxies     map[string]*memRecord[model.ProxyLink]
}

type memRecord[T any] struct {
	value    T
	deadline time.Time
}

func (r *memRecord[T]) expired() bool {
	return !r.deadline.IsZero() && time.Now().After(r.deadline)
}

// NewMemory creates an in-memory store.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:         cfg,
		connections: make(map[string]*memRecord[model.Connection]),
		transcripts: make(map[string][]model.TranscriptEntry),
		trDeadline:  make(map[string]time.Time),
		profiles:    make(map[string]*model.Profile),
		proxies:     make(map[string]*memRecord[model.ProxyLink]),
	}
}

func deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// PutConnection saves a connection record, overwriting any existing one.
func (m *Memory) PutConnection(ctx context.Context, conn *model.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *conn
	m.connections[conn.ID] = &memRecord[model.Connection]{value: c, deadline: deadline(m.cfg.ConnectionTTL)}
	return nil
}

// GetConnection retrieves a connection by ID.
func (m *Memory) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	m.mu.RLock()
	rec, ok := m.connections[id]
	m.mu.RUnlock()

	if !ok || rec.expired() {
		return nil, ErrNotFound
	}
	c := rec.value
	return &c, nil
}

// LinkCaller conditionally applies the callee link under the write lock.
func (m *Memory) LinkCaller(ctx context.Context, callerID string, link model.TargetLink) (*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.connections[callerID]
	if !ok || rec.expired() {
		return nil, ErrNotFound
	}
	if rec.value.TranslationActive {
		return nil, ErrAlreadyLinked
	}

	rec.value.TranslationActive = true
	rec.value.TargetConnectionID = link.TargetConnectionID
	rec.value.TargetLanguage = link.TargetLanguage
	rec.value.TargetLanguageCode = link.TargetLanguageCode
	rec.value.TargetTranscriptionProvider = link.TargetTranscriptionProvider
	rec.value.TargetTTSProvider = link.TargetTTSProvider
	rec.value.TargetVoice = link.TargetVoice
	rec.value.TargetCallSid = link.TargetCallSid

	c := rec.value
	return &c, nil
}

// MarkDisconnected flips a connection's status.
func (m *Memory) MarkDisconnected(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.connections[id]
	if !ok || rec.expired() {
		return ErrNotFound
	}
	rec.value.CallStatus = model.CallStatusDisconnected
	return nil
}

// ListConnections returns all unexpired connection records.
func (m *Memory) ListConnections(ctx context.Context) ([]model.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Connection
	for _, rec := range m.connections {
		if rec.expired() {
			continue
		}
		out = append(out, rec.value)
	}
	return out, nil
}

// AppendTranscript appends one entry to a conversation.
func (m *Memory) AppendTranscript(ctx context.Context, entry *model.TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ParentConnectionID
	m.transcripts[key] = append(m.transcripts[key], *entry)
	m.trDeadline[key] = deadline(m.cfg.TranscriptTTL)
	return nil
}

// ListTranscript returns a conversation's entries in ascending order.
func (m *Memory) ListTranscript(ctx context.Context, parentConnectionID string) ([]model.TranscriptEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if dl, ok := m.trDeadline[parentConnectionID]; ok && !dl.IsZero() && time.Now().After(dl) {
		return nil, nil
	}

	entries := append([]model.TranscriptEntry(nil), m.transcripts[parentConnectionID]...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TS != entries[j].TS {
			return entries[i].TS < entries[j].TS
		}
		return entries[i].Seq < entries[j].Seq
	})
	return entries, nil
}

// PutProfile saves a profile.
func (m *Memory) PutProfile(ctx context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *p
	m.profiles[p.PhoneNumber] = &c
	return nil
}

// GetProfile retrieves a profile by phone number.
func (m *Memory) GetProfile(ctx context.Context, phoneNumber string) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[phoneNumber]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

// ListProfiles returns all profiles.
func (m *Memory) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out, nil
}

// DeleteProfile removes a profile.
func (m *Memory) DeleteProfile(ctx context.Context, phoneNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[phoneNumber]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, phoneNumber)
	return nil
}

// PutProxyLink saves a short-lived proxy link keyed by the caller-facing
// number.
func (m *Memory) PutProxyLink(ctx context.Context, link *model.ProxyLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *link
	m.proxies[link.Number] = &memRecord[model.ProxyLink]{value: c, deadline: deadline(m.cfg.ProxyTTL)}
	return nil
}

// GetProxyLink retrieves a proxy link by number.
func (m *Memory) GetProxyLink(ctx context.Context, number string) (*model.ProxyLink, error) {
	m.mu.RLock()
	rec, ok := m.proxies[number]
	m.mu.RUnlock()

	if !ok || rec.expired() {
		return nil, ErrNotFound
	}
	c := rec.value
	return &c, nil
}
