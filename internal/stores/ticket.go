package stores

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrTicketNotFound covers an unknown or expired ticket.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketMismatch is returned when the presented code does not match.
	// The ticket stays live so a typo does not force a new request.
	ErrTicketMismatch = errors.New("ticket code mismatch")
	// ErrTicketUnavailable indicates the ticket backend is unreachable.
	ErrTicketUnavailable = errors.New("ticket backend unavailable")
)

// TicketRecord is one pending email-verification or password-reset ticket.
// Only the sha256 of the code is stored.
type TicketRecord struct {
	UserID    string `json:"uid"`
	CodeHash  string `json:"code_hash"`
	ExpiresAt int64  `json:"expires_at"`
}

// consumeTicketLua atomically validates and deletes a ticket.
// KEYS[1] = ticket key, ARGV[1] = provided code hash, ARGV[2] = now unix.
var consumeTicketLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local ok, rec = pcall(cjson.decode, data)
if not ok or not rec.code_hash then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

if rec.expires_at and tonumber(ARGV[2]) >= rec.expires_at then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

if rec.code_hash ~= ARGV[1] then
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// TicketStore is a Redis table of one-time codes keyed by email. Saving a
// new ticket for an email replaces any pending one, so only the latest code
// a user was sent is ever valid.
type TicketStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewTicketStore creates a [TicketStore] with the given key prefix.
func NewTicketStore(redisClient redis.UniversalClient, prefix string) *TicketStore {
	return &TicketStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *TicketStore) key(email string) string {
	return s.prefix + ":" + email
}

// Save persists a ticket for email with the given TTL, replacing any
// pending ticket for the same email.
func (s *TicketStore) Save(
	ctx context.Context,
	email string,
	record *TicketRecord,
	ttl time.Duration,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(email), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTicketUnavailable, err)
	}
	return nil
}

// Consume validates providedHash against the pending ticket for email and
// deletes the ticket on match. A wrong code returns [ErrTicketMismatch] and
// leaves the ticket in place; a missing or expired ticket returns
// [ErrTicketNotFound].
func (s *TicketStore) Consume(ctx context.Context, email, providedHash string) (*TicketRecord, error) {
	result, err := consumeTicketLua.Run(ctx, s.redis,
		[]string{s.key(email)},
		providedHash,
		time.Now().Unix(),
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrTicketNotFound
		case "mismatch":
			return nil, ErrTicketMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrTicketUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrTicketUnavailable)
	}

	record := &TicketRecord{}
	if err := json.Unmarshal([]byte(data), record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketUnavailable, err)
	}

	// Lua string comparison is not constant-time; re-check in Go.
	if subtle.ConstantTimeCompare([]byte(record.CodeHash), []byte(providedHash)) != 1 {
		return nil, ErrTicketMismatch
	}

	return record, nil
}

// Drop removes any pending ticket for email without validating a code.
func (s *TicketStore) Drop(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTicketUnavailable, err)
	}
	return nil
}
