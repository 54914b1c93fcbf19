package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/fieldreport/internal/models"
)

const (
	defaultDraftRedisPrefix  = "draft:"
	defaultDraftRedisTimeout = 2 * time.Second
)

// RedisStore keeps drafts in Redis so they survive restarts and are shared
// between replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed draft store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return NewRedisStoreWithPrefix(client, ttl, defaultDraftRedisPrefix)
}

// NewRedisStoreWithPrefix creates a Redis-backed draft store with explicit key prefix.
func NewRedisStoreWithPrefix(client *redis.Client, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultDraftRedisPrefix
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

// Get fetches the user's draft.
func (s *RedisStore) Get(ctx context.Context, userID string) (*models.ReportDraft, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultDraftRedisTimeout)
	defer cancel()

	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get draft: %w", err)
	}

	var draft models.ReportDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, false, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, true, nil
}

// Put stores the user's draft and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, userID string, draft *models.ReportDraft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultDraftRedisTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	return nil
}

// Delete removes the user's draft.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultDraftRedisTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
