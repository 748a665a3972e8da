package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deals-portal/utils"

	"github.com/redis/go-redis/v9"
)

const popTimeout = 5 * time.Second

// RedisQueue is a Publisher backed by a Redis list, so events outlive the
// process that emitted them. Consume drains the list into a Handler.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisClient parses redisURL and checks the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	utils.Info("connected to redis", map[string]any{"addr": opts.Addr})
	return client, nil
}

// NewRedisQueue uses the list stored at key
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Encode serializes an event for the queue
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses a queued event
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Kind != KindStatusChanged && ev.Kind != KindCancelled {
		return Event{}, fmt.Errorf("decode event %s: unknown kind %q", ev.ID, ev.Kind)
	}
	return ev, nil
}

// Publish pushes ev onto the list
func (q *RedisQueue) Publish(ctx context.Context, ev Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.ID, err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.ID, err)
	}
	return nil
}

// Consume pops events in publish order and hands them to h until ctx is done.
// ctx only bounds the pop; an event already popped is handled to completion.
func (q *RedisQueue) Consume(ctx context.Context, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			utils.Warn("redis queue pop failed", map[string]any{"queue": q.key, "error": err.Error()})
			time.Sleep(time.Second)
			continue
		}

		// res is [key, value]
		ev, err := Decode([]byte(res[1]))
		if err != nil {
			utils.Error("dropping undecodable event", map[string]any{"queue": q.key, "error": err.Error()})
			continue
		}
		q.handle(h, ev)
	}
}

func (q *RedisQueue) handle(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("event handler panicked", map[string]any{
				"queue":    q.key,
				"event_id": ev.ID,
				"kind":     string(ev.Kind),
				"panic":    fmt.Sprint(r),
			})
		}
	}()
	h.Handle(context.Background(), ev)
}
