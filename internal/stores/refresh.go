package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRefreshNotFound covers an unknown, expired, or already-consumed
	// refresh record.
	ErrRefreshNotFound = errors.New("refresh record not found")
	// ErrRefreshUnavailable indicates the refresh backend is unreachable.
	ErrRefreshUnavailable = errors.New("refresh backend unavailable")
)

// RefreshRecord is the server-side state behind one refresh token. The token
// itself never touches Redis; records are keyed by its sha256.
type RefreshRecord struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	ExpiresAt int64  `json:"expires_at"`
}

// consumeRefreshLua atomically removes a refresh record and its index entry.
// KEYS[1] = record key, ARGV[1] = user index prefix, ARGV[2] = token hash,
// ARGV[3] = current unix time.
var consumeRefreshLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local ok, rec = pcall(cjson.decode, data)
if not ok or not rec.uid then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[1] .. rec.uid, ARGV[2])

if rec.expires_at and tonumber(ARGV[3]) >= rec.expires_at then
  return {err='not_found'}
end

return data
`)

// RefreshStore tracks single-use refresh records in Redis with a per-user
// index for bulk revocation.
type RefreshStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRefreshStore creates a [RefreshStore] with the given key prefix.
func NewRefreshStore(redisClient redis.UniversalClient, prefix string) *RefreshStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RefreshStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RefreshStore) key(tokenHash string) string {
	return s.prefix + ":" + tokenHash
}

func (s *RefreshStore) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

// Save persists a refresh record keyed by tokenHash with the given TTL and
// records the hash in the owner's index.
func (s *RefreshStore) Save(
	ctx context.Context,
	tokenHash string,
	record *RefreshRecord,
	ttl time.Duration,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(tokenHash), data, ttl)
		pipe.SAdd(ctx, s.userKey(record.UserID), tokenHash)
		pipe.Expire(ctx, s.userKey(record.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}

	return nil
}

// Consume atomically removes and returns the record for tokenHash. A second
// Consume of the same hash, or a Consume after expiry, returns
// [ErrRefreshNotFound].
func (s *RefreshStore) Consume(ctx context.Context, tokenHash string) (*RefreshRecord, error) {
	result, err := consumeRefreshLua.Run(ctx, s.redis,
		[]string{s.key(tokenHash)},
		s.prefix+"u:",
		tokenHash,
		time.Now().Unix(),
	).Result()
	if err != nil {
		if err.Error() == "not_found" {
			return nil, ErrRefreshNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrRefreshUnavailable)
	}

	record := &RefreshRecord{}
	if err := json.Unmarshal([]byte(data), record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}

	return record, nil
}

// RevokeAllForUser removes every refresh record indexed for userID and
// returns how many were removed. Used by logout-all, password change, and
// password reset.
func (s *RefreshStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	hashes, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, s.key(h))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, s.userKey(userID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}

	return len(hashes), nil
}
