package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultLockTTL = 2 * time.Minute

// Redis guards payment submission across service replicas.
type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Redis{Client: client, ttl: ttl}
}

func submitKey(widgetID string) string {
	return fmt.Sprintf("widget_submit_lock:%s", widgetID)
}

// AcquireSubmit takes the submit lock of a widget for one attempt.
func (r *Redis) AcquireSubmit(ctx context.Context, widgetID, token string) (bool, error) {
	return r.Client.SetNX(ctx, submitKey(widgetID), token, r.ttl).Result()
}

// ReleaseSubmit drops the lock if it is still held by token.
func (r *Redis) ReleaseSubmit(ctx context.Context, widgetID, token string) error {
	key := submitKey(widgetID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil // held by another attempt
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
