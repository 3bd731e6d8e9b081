// internal/pkg/otp/redis_store.go
package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, msisdn string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal otp entry: %w", err)
	}
	if err := s.client.Set(ctx, key(msisdn), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, msisdn string) (*Entry, error) {
	data, err := s.client.Get(ctx, key(msisdn)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoEntry
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read otp from redis: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal otp entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisStore) Delete(ctx context.Context, msisdn string) error {
	if err := s.client.Del(ctx, key(msisdn)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

func key(msisdn string) string {
	return fmt.Sprintf("otp:%s", msisdn)
}
