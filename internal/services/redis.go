package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RideUpdatesChannel carries every ride event for other instances and consumers
const RideUpdatesChannel = "ride:updates"

// InitRedis parses the URL and checks connectivity
func InitRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisTokenBlacklist stores revoked token ids until they would have expired anyway
type RedisTokenBlacklist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client, now: time.Now}
}

func blacklistKey(jti string) string {
	return "token:blacklist:" + jti
}

func (b *RedisTokenBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(jti), "1", ttl).Err()
}

func (b *RedisTokenBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RidePublisher republishes user events on Redis pub/sub
type RidePublisher struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRidePublisher(client *redis.Client, log *logger.Logger) *RidePublisher {
	return &RidePublisher{client: client, log: log}
}

type publishedEvent struct {
	UserID    uint  `json:"userId"`
	Event     Event `json:"event"`
	Timestamp int64 `json:"timestamp"`
}

func (p *RidePublisher) NotifyUser(ctx context.Context, userID uint, event Event) {
	data, err := json.Marshal(publishedEvent{UserID: userID, Event: event, Timestamp: time.Now().Unix()})
	if err != nil {
		p.log.Error("Failed to marshal ride event", logger.Err(err))
		return
	}
	if err := p.client.Publish(ctx, RideUpdatesChannel, data).Err(); err != nil {
		p.log.Warn("Failed to publish ride event", logger.String("type", event.Type), logger.Err(err))
	}
}
