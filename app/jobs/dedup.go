package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "jobs:dedup:"

// DedupStore decides whether an externally-issued trigger has been seen
// before. Claim returns true for the first caller of a key within the
// TTL window and false for every replay.
type DedupStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDedupStore backs trigger dedup with Redis so concurrent
// orchestrator instances share the same idempotency window.
type RedisDedupStore struct {
	client *redis.Client
}

func NewRedisDedupStore(addr, password string) (*RedisDedupStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisDedupStore{client: client}, nil
}

// Claim marks the key via SETNX with TTL, a single atomic operation, so
// only one of any number of concurrent claimants wins.
func (s *RedisDedupStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, dedupKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return claimed, nil
}

func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}
