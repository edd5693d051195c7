package publisher

import (
	"context"
	"encoding/base64"
	"strconv"

	"math/rand"

	"github.com/redis/go-redis/v9"

	"tablescout/reviewworker/services/metrics"
)

// RedisPublisher implements Publisher on Redis streams. Records are spread
// over streamCount streams so downstream consumers can shard.
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Publish publishes a location record to a Redis stream.
// The record is base64 encoded before publishing.
func (p *RedisPublisher) Publish(locationID string, record []byte) error {
	encoded := base64.StdEncoding.EncodeToString(record)

	// random stream name by streamCount
	// if streamCount is 10, stream name will be stream:0 ~ stream:9
	stream := p.streamPrefix + ":" + strconv.Itoa(rand.Intn(p.streamCount))

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			locationID: encoded,
		},
	}).Err()
	if err != nil {
		return err
	}
	metrics.RecordsPublished.WithLabelValues("redis").Inc()
	return nil
}

// Trim trims all streams to the configured maximum length
func (p *RedisPublisher) Trim() error {
	pattern := p.streamPrefix + ":*"
	streams, err := p.client.Keys(p.ctx, pattern).Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err()
		if err != nil {
			return err
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
