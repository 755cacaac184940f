package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklist(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}

	token := "test-token-" + time.Now().Format(time.RFC3339Nano)
	defer client.Del(ctx, blacklistPrefix+token)

	b := NewBlacklist(client)

	revoked, err := b.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.Revoke(ctx, token, time.Minute))
	revoked, err = b.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, b.Revoke(ctx, "already-expired", 0))
	revoked, err = b.IsRevoked(ctx, "already-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
