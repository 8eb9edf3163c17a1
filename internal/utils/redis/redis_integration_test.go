package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaininsights/validator/internal/config"
)

func newIntegrationRedis(t *testing.T) *Redis {
	t.Helper()
	if os.Getenv("REDIS_INTEGRATION") != "1" {
		t.Skip("set REDIS_INTEGRATION=1 to run against a local redis")
	}
	r, err := NewRedis(&config.RedisEnvConfig{RedisHost: "127.0.0.1", RedisPort: 6379, RedisDB: 0})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestRedisIntegration_IncrExpire(t *testing.T) {
	r := newIntegrationRedis(t)
	ctx := context.Background()
	key := "validator:test:" + time.Now().Format(time.RFC3339Nano)

	n, err := r.Incr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = r.Incr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, r.Expire(ctx, key, time.Second))
	assert.Eventually(t, func() bool {
		v, err := r.Get(ctx, key)
		return err == nil && v == ""
	}, 3*time.Second, 100*time.Millisecond)
}

func TestRedisIntegration_GetSet(t *testing.T) {
	r := newIntegrationRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))
	require.NoError(t, r.Set(ctx, "validator:test:value", "hello", time.Minute))
	v, err := r.Get(ctx, "validator:test:value")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = r.Get(ctx, "validator:test:missing")
	require.NoError(t, err)
	assert.Empty(t, v)
}
