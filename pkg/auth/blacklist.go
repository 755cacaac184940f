package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "blacklist:"

// Blacklist keeps revoked tokens in Redis until they would have expired
// anyway.
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

// Revoke blacklists token for ttl. A non-positive ttl is a no-op since the
// token is already expired.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}

func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
