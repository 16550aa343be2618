package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"EGXTicker/internal/model"
)

const (
	DefaultKey     = "egx:snapshot"
	DefaultChannel = "egx:snapshots"
	DefaultTTL     = 10 * time.Minute
)

// RedisPublisher stores the latest snapshot under Key and announces it on
// Channel, so widgets can either poll or subscribe.
type RedisPublisher struct {
	client  *redis.Client
	Key     string
	Channel string
	TTL     time.Duration
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Printf("[INFO] redis connected: %s (%s)", addr, pong)
	return rdb, nil
}

// NewRedisPublisher wraps client. Empty key or channel and a non-positive
// TTL fall back to the defaults.
func NewRedisPublisher(client *redis.Client, key, channel string, ttl time.Duration) *RedisPublisher {
	if key == "" {
		key = DefaultKey
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPublisher{client: client, Key: key, Channel: channel, TTL: ttl}
}

func (p *RedisPublisher) Name() string { return "redis" }

// Publish writes the snapshot and notifies subscribers in one round trip.
func (p *RedisPublisher) Publish(ctx context.Context, res model.Result) error {
	data, err := encode(res)
	if err != nil {
		return err
	}
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.Key, data, p.TTL)
	pipe.Publish(ctx, p.Channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Latest reads back the stored snapshot.
func (p *RedisPublisher) Latest(ctx context.Context) (model.Result, error) {
	raw, err := p.client.Get(ctx, p.Key).Bytes()
	if err != nil {
		return model.Result{}, fmt.Errorf("redis get %s: %w", p.Key, err)
	}
	return decode(raw)
}

func (p *RedisPublisher) Close() error { return p.client.Close() }

func encode(res model.Result) ([]byte, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decode(raw []byte) (model.Result, error) {
	var res model.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.Result{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return res, nil
}
