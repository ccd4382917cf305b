package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/crosscall-ai/translation-relay/internal/model"
)

// Redis key layout. The primary-key/sort-key pairs of the original table
// map onto prefixed keys; the constant-partition secondary indexes map
// onto sets that are reaped lazily when a member's record has expired.
const (
	connKeyPrefix       = "connection:"
	profileKeyPrefix    = "profile:"
	proxyKeyPrefix      = "proxy:"
	transcriptKeyPrefix = "spokenText:"

	connIndexKey    = "idx:connection"
	profileIndexKey = "idx:profile"
)

// linkRetries bounds the optimistic-lock retry loop in LinkCaller.
const linkRetries = 3

// Redis is the production Store backed by a Redis instance. TTLs are
// enforced natively by key expiry.
type Redis struct {
	client *redis.Client
	cfg    Config
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg}
}

// Ping checks store connectivity.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PutConnection saves a connection record with overwrite semantics.
func (s *Redis) PutConnection(ctx context.Context, conn *model.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, connKeyPrefix+conn.ID, data, s.cfg.ConnectionTTL)
		pipe.SAdd(ctx, connIndexKey, conn.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put connection: %w", err)
	}
	return nil
}

// GetConnection retrieves a connection by ID.
func (s *Redis) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	data, err := s.client.Get(ctx, connKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	var conn model.Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("unmarshal connection: %w", err)
	}
	return &conn, nil
}

// LinkCaller applies the callee link to the caller record under an
// optimistic transaction. The update is conditional on TranslationActive
// still being false, so concurrent callee setups cannot double-link.
func (s *Redis) LinkCaller(ctx context.Context, callerID string, link model.TargetLink) (*model.Connection, error) {
	key := connKeyPrefix + callerID
	var linked *model.Connection

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var conn model.Connection
		if err := json.Unmarshal(data, &conn); err != nil {
			return fmt.Errorf("unmarshal connection: %w", err)
		}
		if conn.TranslationActive {
			return ErrAlreadyLinked
		}

		conn.TranslationActive = true
		conn.TargetConnectionID = link.TargetConnectionID
		conn.TargetLanguage = link.TargetLanguage
		conn.TargetLanguageCode = link.TargetLanguageCode
		conn.TargetTranscriptionProvider = link.TargetTranscriptionProvider
		conn.TargetTTSProvider = link.TargetTTSProvider
		conn.TargetVoice = link.TargetVoice
		conn.TargetCallSid = link.TargetCallSid

		updated, err := json.Marshal(&conn)
		if err != nil {
			return fmt.Errorf("marshal connection: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		linked = &conn
		return nil
	}

	for i := 0; i < linkRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return linked, nil
	}
	return nil, fmt.Errorf("link caller %s: transaction contention", callerID)
}

// MarkDisconnected flips a connection's call status.
func (s *Redis) MarkDisconnected(ctx context.Context, id string) error {
	key := connKeyPrefix + id

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var conn model.Connection
		if err := json.Unmarshal(data, &conn); err != nil {
			return fmt.Errorf("unmarshal connection: %w", err)
		}
		conn.CallStatus = model.CallStatusDisconnected

		updated, err := json.Marshal(&conn)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < linkRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("mark disconnected %s: transaction contention", id)
}

// ListConnections returns all unexpired connection records and prunes
// index members whose records have expired.
func (s *Redis) ListConnections(ctx context.Context) ([]model.Connection, error) {
	ids, err := s.client.SMembers(ctx, connIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	var out []model.Connection
	var stale []interface{}
	for _, id := range ids {
		conn, err := s.GetConnection(ctx, id)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *conn)
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, connIndexKey, stale...)
	}
	return out, nil
}

// transcriptMember renders one ZSET member: the composite sort key, a
// separator, then the entry JSON. ZRANGE breaks score ties
// lexicographically by member, so the zero-padded key prefix makes the
// set's native order the (TS, Seq) order.
func transcriptMember(entry *model.TranscriptEntry, data []byte) string {
	return SortKey(entry.TS, entry.Seq) + "|" + string(data)
}

// parseTranscriptMember strips the sort-key prefix and returns the entry
// JSON.
func parseTranscriptMember(member string) ([]byte, error) {
	i := strings.IndexByte(member, '|')
	if i < 0 {
		return nil, fmt.Errorf("transcript member missing sort-key prefix: %q", member)
	}
	return []byte(member[i+1:]), nil
}

// AppendTranscript appends one entry to the conversation's ordered set.
// The sort-key member prefix keeps same-millisecond entries distinct and
// ordered.
func (s *Redis) AppendTranscript(ctx context.Context, entry *model.TranscriptEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal transcript entry: %w", err)
	}

	key := transcriptKeyPrefix + entry.ParentConnectionID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(entry.TS), Member: transcriptMember(entry, data)})
		pipe.Expire(ctx, key, s.cfg.TranscriptTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// ListTranscript returns a conversation's entries in ascending (TS, Seq)
// order. The order is the ZSET's own: score, then sort-key prefix.
func (s *Redis) ListTranscript(ctx context.Context, parentConnectionID string) ([]model.TranscriptEntry, error) {
	members, err := s.client.ZRange(ctx, transcriptKeyPrefix+parentConnectionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list transcript: %w", err)
	}

	entries := make([]model.TranscriptEntry, 0, len(members))
	for _, m := range members {
		data, err := parseTranscriptMember(m)
		if err != nil {
			return nil, err
		}
		var e model.TranscriptEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal transcript entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// PutProfile saves a profile.
func (s *Redis) PutProfile(ctx context.Context, p *model.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, profileKeyPrefix+p.PhoneNumber, data, s.cfg.ProfileTTL)
		pipe.SAdd(ctx, profileIndexKey, p.PhoneNumber)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by phone number.
func (s *Redis) GetProfile(ctx context.Context, phoneNumber string) (*model.Profile, error) {
	data, err := s.client.Get(ctx, profileKeyPrefix+phoneNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}

// ListProfiles returns all profiles.
func (s *Redis) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	numbers, err := s.client.SMembers(ctx, profileIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	sort.Strings(numbers)

	var out []model.Profile
	var stale []interface{}
	for _, number := range numbers {
		p, err := s.GetProfile(ctx, number)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, number)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, profileIndexKey, stale...)
	}
	return out, nil
}

// DeleteProfile removes a profile.
func (s *Redis) DeleteProfile(ctx context.Context, phoneNumber string) error {
	n, err := s.client.Del(ctx, profileKeyPrefix+phoneNumber).Result()
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	s.client.SRem(ctx, profileIndexKey, phoneNumber)
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PutProxyLink saves a short-lived proxy link.
func (s *Redis) PutProxyLink(ctx context.Context, link *model.ProxyLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal proxy link: %w", err)
	}
	if err := s.client.Set(ctx, proxyKeyPrefix+link.Number, data, s.cfg.ProxyTTL).Err(); err != nil {
		return fmt.Errorf("put proxy link: %w", err)
	}
	return nil
}

// GetProxyLink retrieves a proxy link by the caller-facing number.
func (s *Redis) GetProxyLink(ctx context.Context, number string) (*model.ProxyLink, error) {
	data, err := s.client.Get(ctx, proxyKeyPrefix+number).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get proxy link: %w", err)
	}

	var link model.ProxyLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("unmarshal proxy link: %w", err)
	}
	return &link, nil
}
