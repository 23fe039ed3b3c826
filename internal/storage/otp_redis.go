package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amruthadental/clinic-backend/internal/models"
)

// takeScript deletes KEYS[1] only when it holds ARGV[1]
var takeScript = redis.NewScript(`
	local stored = redis.call('GET', KEYS[1])
	if stored == false then
		return 0
	end
	if tonumber(stored) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call('DEL', KEYS[1])
	return 1
`)

// RedisOTPStore keeps OTP entries in Redis with a native TTL, so expiry
// survives restarts and is shared by every instance.
type RedisOTPStore struct {
	client *redis.Client
	prefix string
}

// NewRedisOTPStore creates an OTP store on client. Keys are prefix + phone.
func NewRedisOTPStore(client *redis.Client, prefix string) *RedisOTPStore {
	if prefix == "" {
		prefix = "otp:"
	}
	return &RedisOTPStore{client: client, prefix: prefix}
}

func (r *RedisOTPStore) key(phone string) string {
	return r.prefix + phone
}

func (r *RedisOTPStore) Put(ctx context.Context, entry models.OTPEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if entry.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return r.Delete(ctx, entry.Phone)
	}
	if err := r.client.Set(ctx, r.key(entry.Phone), strconv.Itoa(entry.Code), ttl).Err(); err != nil {
		return fmt.Errorf("redis set otp: %w", err)
	}
	return nil
}

// Take relies on the key TTL for expiry; now is unused.
func (r *RedisOTPStore) Take(ctx context.Context, phone string, code int, now time.Time) (bool, error) {
	n, err := takeScript.Run(ctx, r.client, []string{r.key(phone)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("redis take otp: %w", err)
	}
	return n == 1, nil
}

func (r *RedisOTPStore) Delete(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, r.key(phone)).Err(); err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	return nil
}

func (r *RedisOTPStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
