// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue is the broker adapter: it publishes JSON messages to Redis
// lists and consumes the inbound list with at-least-once delivery.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// pusher is the subset of the Redis client the publisher needs.
type pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Publisher sends JSON messages to named Redis lists.
type Publisher struct {
	rdb pusher
}

// NewPublisher creates a publisher on the given Redis connection.
func NewPublisher(rdb pusher) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish serialises v and pushes it onto the named queue. Consumers pop from
// the opposite end, so each queue is FIFO.
func (p *Publisher) Publish(ctx context.Context, queueName string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", queueName, err)
	}
	return p.PublishRaw(ctx, queueName, payload)
}

// PublishRaw pushes an already-encoded payload onto the named queue.
func (p *Publisher) PublishRaw(ctx context.Context, queueName string, payload []byte) error {
	if err := p.rdb.LPush(ctx, queueName, string(payload)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH %s: %w", queueName, err)
	}

	slog.Debug("published message to queue",
		"queue", queueName,
		"bytes", len(payload),
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
