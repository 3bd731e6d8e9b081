// internal/pkg/session/blacklist.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist remembers revoked token ids until the tokens would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

// Revoke adds a token to the blacklist
func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsRevoked checks if a token is blacklisted
func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}

// MemoryBlacklist is the single-process variant used in memory storage mode.
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = b.now().Add(ttl)
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.revoked[jti]
	if !ok {
		return false, nil
	}
	if b.now().After(until) {
		delete(b.revoked, jti)
		return false, nil
	}
	return true, nil
}
