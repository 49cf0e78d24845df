package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PermissionCache holds per-role permission lists between checks.
type PermissionCache interface {
	Get(ctx context.Context, role string) ([]string, bool, error)
	Set(ctx context.Context, role string, perms []string) error
	Invalidate(ctx context.Context, roles ...string) error
}

// NoopCache never caches, so every check reads persistence.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]string, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []string) error { return nil }
func (NoopCache) Invalidate(context.Context, ...string) error { return nil }

// RedisCache stores role permissions as JSON with a TTL. Roles are
// invalidated explicitly when they change; the TTL bounds staleness if an
// invalidation is lost.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: "authz:role:", ttl: ttl}
}

func (c *RedisCache) key(role string) string { return c.prefix + role }

func (c *RedisCache) Get(ctx context.Context, role string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, c.key(role)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("authz cache get: %w", err)
	}

	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false, fmt.Errorf("authz cache decode: %w", err)
	}
	return perms, true, nil
}

func (c *RedisCache) Set(ctx context.Context, role string, perms []string) error {
	if perms == nil {
		perms = []string{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(role), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("authz cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	keys := make([]string, 0, len(roles))
	for _, r := range roles {
		keys = append(keys, c.key(r))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("authz cache invalidate: %w", err)
	}
	return nil
}
