package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher appends envelopes straight to a Redis stream. It is used
// when there is no outbox to relay from.
type StreamPublisher struct {
	redis  RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
}

type PublisherConfig struct {
	Stream string
	// MaxLen caps the stream approximately; zero leaves it unbounded.
	MaxLen int64
}

func NewStreamPublisher(client RedisClient, logger *slog.Logger, config PublisherConfig) *StreamPublisher {
	if config.Stream == "" {
		config.Stream = DefaultStream
	}

	return &StreamPublisher{
		redis:  client,
		stream: config.Stream,
		maxLen: config.MaxLen,
		logger: logger.With("component", "stream_publisher"),
	}
}

// Publish appends one envelope and returns the stream entry ID.
func (p *StreamPublisher) Publish(ctx context.Context, env *Envelope) (string, error) {
	values, err := env.StreamValues()
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published",
		"event_id", env.EventID,
		"aggregate_id", env.AggregateID(),
		"stream", p.stream,
		"entry_id", id)

	return id, nil
}

func (p *StreamPublisher) Stream() string {
	return p.stream
}
