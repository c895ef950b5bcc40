package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitKey(t *testing.T) {
	assert.Equal(t, "widget_submit_lock:w-1", submitKey("w-1"))
}

func TestNewRedisDefaultsTTL(t *testing.T) {
	r := NewRedis(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0)
	defer r.Client.Close()
	assert.Equal(t, defaultLockTTL, r.ttl)
}

// TestSubmitLockIntegration requires a running Redis server
func TestSubmitLockIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping test because REDIS_ADDR is not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping test because Redis is not available:", err)
	}

	r := NewRedis(client, 5*time.Second)
	widgetID := "test-widget-" + time.Now().Format("20060102150405.000000")
	defer client.Del(ctx, submitKey(widgetID))

	ok, err := r.AcquireSubmit(ctx, widgetID, "attempt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AcquireSubmit(ctx, widgetID, "attempt-2")
	require.NoError(t, err)
	assert.False(t, ok, "second attempt must not take a held lock")

	require.NoError(t, r.ReleaseSubmit(ctx, widgetID, "attempt-2"))
	ok, err = r.AcquireSubmit(ctx, widgetID, "attempt-3")
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-owner is ignored")

	require.NoError(t, r.ReleaseSubmit(ctx, widgetID, "attempt-1"))
	ok, err = r.AcquireSubmit(ctx, widgetID, "attempt-4")
	require.NoError(t, err)
	assert.True(t, ok)
}
