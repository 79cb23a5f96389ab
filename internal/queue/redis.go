package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultProcessingStream = "ai.processing"
	DefaultCompletionStream = "ai.processing.complete"
	DefaultGroup            = "brain"
)

// Message is one delivery from the processing stream. Body carries the raw
// JSON payload; Attempt counts redeliveries caused by Nack.
type Message struct {
	ID      string
	Body    []byte
	Attempt int
}

// Consumer is the inbound side of the queue.
type Consumer interface {
	Receive(ctx context.Context) (Message, error)
	Ack(ctx context.Context, m Message) error
	Nack(ctx context.Context, m Message) error
}

// Publisher is the outbound side: completion payloads for the upstream
// backend.
type Publisher interface {
	PublishCompletion(ctx context.Context, payload any) error
}

type Config struct {
	Addr             string
	ProcessingStream string
	CompletionStream string
	Group            string
	ConsumerName     string
	BlockTimeout     time.Duration
}

// RedisQueue is a Redis Streams transport with a consumer group. Nack
// requeues the message exactly once; a second failure drops it.
type RedisQueue struct {
	rdb *goredis.Client
	cfg Config
}

func NewRedisQueue(ctx context.Context, cfg Config) (*RedisQueue, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.ProcessingStream == "" {
		cfg.ProcessingStream = DefaultProcessingStream
	}
	if cfg.CompletionStream == "" {
		cfg.CompletionStream = DefaultCompletionStream
	}
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = DefaultGroup + "-" + uuid.NewString()[:8]
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	err := rdb.XGroupCreateMkStream(ctx, cfg.ProcessingStream, cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		rdb.Close()
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &RedisQueue{rdb: rdb, cfg: cfg}, nil
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

// Receive blocks until one message is available or ctx is done.
func (q *RedisQueue) Receive(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		streams, err := q.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    q.cfg.Group,
			Consumer: q.cfg.ConsumerName,
			Streams:  []string{q.cfg.ProcessingStream, ">"},
			Count:    1,
			Block:    q.cfg.BlockTimeout,
		}).Result()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return Message{}, err
		}
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				return messageFromEntry(entry), nil
			}
		}
	}
}

func messageFromEntry(entry goredis.XMessage) Message {
	m := Message{ID: entry.ID}
	if body, ok := entry.Values["body"].(string); ok {
		m.Body = []byte(body)
	}
	if attempt, ok := entry.Values["attempt"].(string); ok {
		m.Attempt, _ = strconv.Atoi(attempt)
	}
	return m
}

func (q *RedisQueue) Ack(ctx context.Context, m Message) error {
	return q.rdb.XAck(ctx, q.cfg.ProcessingStream, q.cfg.Group, m.ID).Err()
}

// Nack requeues the message as a new entry with the attempt counter bumped,
// then acks the original. A message already on its redelivery is dropped.
func (q *RedisQueue) Nack(ctx context.Context, m Message) error {
	if m.Attempt >= 1 {
		log.Printf("brain-queue message_dropped id=%s attempt=%d", m.ID, m.Attempt)
		return q.Ack(ctx, m)
	}
	err := q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.cfg.ProcessingStream,
		Values: map[string]any{
			"body":    string(m.Body),
			"attempt": strconv.Itoa(m.Attempt + 1),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("requeue message %s: %w", m.ID, err)
	}
	return q.Ack(ctx, m)
}

// PublishCompletion appends the payload to the completion stream.
func (q *RedisQueue) PublishCompletion(ctx context.Context, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.cfg.CompletionStream,
		Values: map[string]any{
			"message_id": uuid.NewString(),
			"body":       string(raw),
		},
	}).Err()
}

var (
	_ Consumer  = (*RedisQueue)(nil)
	_ Publisher = (*RedisQueue)(nil)
)
