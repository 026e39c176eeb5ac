// Package session gates VAL saves through Redis so that only one save per VAL
// is in flight at a time, and remembers the outcome of the last save.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSaveInProgress is returned when another save already holds the VAL's lock.
var ErrSaveInProgress = errors.New("save already in progress")

// SaveRecord describes the most recent successful save of a VAL.
type SaveRecord struct {
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Deleted   int       `json:"deleted"`
	Commit    string    `json:"commit,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// releaseScript deletes the lock only when it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements the save gate using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed save gate
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "val:",
	}
}

func (s *RedisStore) lockKey(valID string) string {
	return s.prefix + valID + ":save-lock"
}

func (s *RedisStore) lastSaveKey(valID string) string {
	return s.prefix + valID + ":last-save"
}

// AcquireSaveLock claims the save slot for valID on behalf of owner. The lock
// expires after ttl so a crashed save cannot block the VAL forever.
func (s *RedisStore) AcquireSaveLock(ctx context.Context, valID, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	ok, err := s.client.SetNX(ctx, s.lockKey(valID), owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire save lock: %w", err)
	}
	if !ok {
		return ErrSaveInProgress
	}
	return nil
}

// ReleaseSaveLock frees the save slot if owner still holds it. It reports
// whether a lock was released.
func (s *RedisStore) ReleaseSaveLock(ctx context.Context, valID, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{s.lockKey(valID)}, owner).Int()
	if err != nil {
		return false, fmt.Errorf("release save lock: %w", err)
	}
	return n > 0, nil
}

// SaveInProgress reports whether any owner holds the save slot for valID.
func (s *RedisStore) SaveInProgress(ctx context.Context, valID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.lockKey(valID)).Result()
	if err != nil {
		return false, fmt.Errorf("check save lock: %w", err)
	}
	return n > 0, nil
}

// RecordSave stores the outcome of a successful save.
func (s *RedisStore) RecordSave(ctx context.Context, valID string, record SaveRecord) error {
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now().UTC()
	}
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal save record: %w", err)
	}
	if err := s.client.Set(ctx, s.lastSaveKey(valID), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

// LastSave returns the most recent save of valID. The boolean is false when
// the VAL has not been saved through this gate yet.
func (s *RedisStore) LastSave(ctx context.Context, valID string) (SaveRecord, bool, error) {
	jsonData, err := s.client.Get(ctx, s.lastSaveKey(valID)).Result()
	if errors.Is(err, redis.Nil) {
		return SaveRecord{}, false, nil
	}
	if err != nil {
		return SaveRecord{}, false, fmt.Errorf("lookup last save: %w", err)
	}

	var record SaveRecord
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return SaveRecord{}, false, fmt.Errorf("unmarshal save record: %w", err)
	}
	return record, true, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
