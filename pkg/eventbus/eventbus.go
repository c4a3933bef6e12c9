// Package eventbus publishes domain events to downstream consumers.
package eventbus

import (
	"context"
	"elearning_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Channel is the pub/sub channel a topic is published on.
func Channel(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + ":" + topic
}

type RedisPublisher struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisPublisher(rdb *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{Redis: rdb, Prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.Redis.Publish(ctx, Channel(p.Prefix, topic), payload).Err()
}

// LogPublisher writes events to the application log. It is used when Redis is
// disabled so events are still visible and drained.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	logger.Log.Info("Event published", zap.String("topic", topic), zap.ByteString("payload", payload))
	return nil
}
