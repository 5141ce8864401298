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

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// consumerClient is the subset of the Redis client the consumer needs.
// *redis.Client satisfies it.
type consumerClient interface {
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Handler processes one delivery. Returning nil acknowledges the message;
// returning an error puts it back on the queue for another attempt.
type Handler func(ctx context.Context, payload []byte) error

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Queue    string
	WorkerID string

	BlockTimeout         time.Duration
	MaxReconnectAttempts uint64
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
}

// Consumer pops messages one at a time from a Redis list using the reliable
// queue pattern: each message is atomically moved to a per-worker processing
// list and only removed from it once the handler has finished.
type Consumer struct {
	rdb        consumerClient
	cfg        ConsumerConfig
	processing string
}

// NewConsumer creates a consumer for cfg.Queue.
func NewConsumer(rdb consumerClient, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = 500 * time.Millisecond
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectBaseDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectBaseDelay
	}
	return &Consumer{
		rdb:        rdb,
		cfg:        cfg,
		processing: ProcessingList(cfg.Queue, cfg.WorkerID),
	}
}

// ProcessingList names the in-flight list owned by one worker.
func ProcessingList(queueName, workerID string) string {
	return fmt.Sprintf("%s:processing:%s", queueName, workerID)
}

func (c *Consumer) backoff() retry.Backoff {
	return retry.WithMaxRetries(c.cfg.MaxReconnectAttempts,
		retry.WithCappedDuration(c.cfg.ReconnectMaxDelay,
			retry.NewExponential(c.cfg.ReconnectBaseDelay)))
}

// Connect pings Redis with capped exponential backoff, giving up after
// MaxReconnectAttempts retries.
func (c *Consumer) Connect(ctx context.Context) error {
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("broker unreachable",
				"queue", c.cfg.Queue,
				"worker", c.cfg.WorkerID,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to broker after %d attempts: %w", attempt, err)
	}
	return nil
}

// resume reconnects and returns whatever is left in the processing list to
// the queue, with the same bounded backoff as Connect. It runs after a
// transport error or a message that could not be settled.
func (c *Consumer) resume(ctx context.Context) error {
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("broker unreachable",
				"queue", c.cfg.Queue,
				"worker", c.cfg.WorkerID,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		if _, err := c.Requeue(ctx); err != nil {
			slog.Warn("requeue failed",
				"queue", c.cfg.Queue,
				"worker", c.cfg.WorkerID,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("resume consumer after %d attempts: %w", attempt, err)
	}
	return nil
}

// Requeue moves anything left in this worker's processing list (from a crash
// mid-message) back onto the queue so it is delivered next.
func (c *Consumer) Requeue(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := c.rdb.LMove(ctx, c.processing, c.cfg.Queue, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("requeue from %s: %w", c.processing, err)
		}
		moved++
	}

	if moved > 0 {
		slog.Info("requeued in-flight messages",
			"queue", c.cfg.Queue,
			"worker", c.cfg.WorkerID,
			"count", moved,
		)
	}
	return moved, nil
}

// Run consumes messages until ctx is cancelled, calling handle for each one
// and waiting for it to finish before taking the next. Transport errors and
// messages that could not be settled trigger a bounded reconnect that also
// requeues the processing list; Run returns an error only when that is
// exhausted.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if _, err := c.Requeue(ctx); err != nil {
		return err
	}

	slog.Info("consumer started",
		"queue", c.cfg.Queue,
		"worker", c.cfg.WorkerID,
	)

	for {
		if ctx.Err() != nil {
			slog.Info("consumer stopping", "queue", c.cfg.Queue, "worker", c.cfg.WorkerID)
			return nil
		}

		payload, err := c.rdb.BLMove(ctx, c.cfg.Queue, c.processing, "RIGHT", "LEFT", c.cfg.BlockTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Warn("broker receive failed, reconnecting",
				"queue", c.cfg.Queue,
				"worker", c.cfg.WorkerID,
				"error", err,
			)
			if err := c.resume(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				return err
			}
			continue
		}

		if err := c.deliver(ctx, payload, handle); err != nil {
			if ctx.Err() != nil {
				// Requeued on the next start.
				continue
			}
			if err := c.resume(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				return err
			}
		}
	}
}

// deliver runs the handler and settles the message. A non-nil return means
// the message could not be settled and is still in the processing list.
func (c *Consumer) deliver(ctx context.Context, payload string, handle Handler) error {
	handleErr := handle(ctx, []byte(payload))

	// Settle the message even if ctx was cancelled while the handler ran.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if handleErr != nil {
		slog.Error("message handling failed, returning to queue",
			"queue", c.cfg.Queue,
			"worker", c.cfg.WorkerID,
			"error", handleErr,
		)
		if err := c.nack(settleCtx, payload); err != nil {
			slog.Error("failed to return message to queue", "error", err)
			return err
		}
		return nil
	}

	if err := c.ack(settleCtx, payload); err != nil {
		slog.Error("failed to acknowledge message", "error", err)
		return err
	}
	return nil
}

func (c *Consumer) ack(ctx context.Context, payload string) error {
	if err := c.rdb.LRem(ctx, c.processing, 1, payload).Err(); err != nil {
		return fmt.Errorf("redis LREM %s: %w", c.processing, err)
	}
	return nil
}

// nack pushes the payload back onto the queue before dropping it from the
// processing list, so a failure between the two leaves a duplicate rather
// than a lost message.
func (c *Consumer) nack(ctx context.Context, payload string) error {
	if err := c.rdb.LPush(ctx, c.cfg.Queue, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH %s: %w", c.cfg.Queue, err)
	}
	return c.ack(ctx, payload)
}
