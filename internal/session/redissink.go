package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/capture"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// RedisSink publishes each decoded packet's JSON envelope to a Redis
// Pub/Sub channel and mirrors the running total into a Redis hash.
// Redis is one optional sink among several; the session's own
// subscriber list is the in-process fan-out.
type RedisSink struct {
	client   *redis.Client
	ctx      context.Context
	channel  string
	statsKey string
}

// NewRedisSink connects to addr and returns a ready-to-use sink.
func NewRedisSink(addr, password string, db int, channel, statsKey string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis sink: connect: %w", err)
	}
	return &RedisSink{client: client, ctx: ctx, channel: channel, statsKey: statsKey}, nil
}

// Observe implements Sink.
func (r *RedisSink) Observe(p nasa.Packet) {
	data, err := json.Marshal(capture.ToRecord(p))
	if err != nil {
		log.Printf("session: redis sink: encode packet: %v", err)
		return
	}

	pipe := r.client.Pipeline()
	pipe.Publish(r.ctx, r.channel, data)
	pipe.HIncrBy(r.ctx, r.statsKey, "total", 1)
	if _, err := pipe.Exec(r.ctx); err != nil {
		log.Printf("session: redis sink: publish: %v", err)
	}
}

// Close releases the underlying Redis client.
func (r *RedisSink) Close() error {
	return r.client.Close()
}
