package source

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes the per-partner hash holding service endpoints.
const RedisKeyPrefix = "tier:config:"

// RedisSource resolves tier configs from per-partner hashes:
// HGET tier:config:<partner> <service>.
type RedisSource struct {
	client redis.Cmdable
}

// NewRedisSource creates a source backed by client.
func NewRedisSource(client redis.Cmdable) *RedisSource {
	return &RedisSource{client: client}
}

// Lookup reads the endpoint stored for the pair.
func (s *RedisSource) Lookup(ctx context.Context, partnerID, serviceName string) (string, error) {
	endpoint, err := s.client.HGet(ctx, RedisKey(partnerID), serviceName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", transportError(ctx, KindRedis, "read tier config", err)
	}
	if endpoint == "" {
		return "", NewLookupError(CategoryBadData, KindRedis, "stored endpoint is empty", nil)
	}
	return endpoint, nil
}

// RedisKey returns the hash key holding a partner's service endpoints.
func RedisKey(partnerID string) string {
	return RedisKeyPrefix + partnerID
}
