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

// Package replay resubmits messages parked on the manual-intervention queue
// back onto the inbound queue once the underlying problem is fixed.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ameyabhat/jetfinder-be/internal/models"
)

// redisClient is the subset of the Redis client the runner needs.
type redisClient interface {
	LLen(ctx context.Context, key string) *redis.IntCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
}

// Forgetter clears an email's completed mark so it is processed again.
type Forgetter interface {
	Forget(ctx context.Context, emailID string) error
}

// Request defines the scope of a replay run.
type Request struct {
	// ErrorTypes limits replay to these types; empty means all.
	ErrorTypes []models.ErrorType
	// Limit caps the number of messages replayed; 0 means no cap.
	Limit  int
	DryRun bool
}

// Result summarises a completed replay run.
type Result struct {
	Scanned  int
	Replayed int
	Kept     int
	Invalid  int
	Elapsed  time.Duration
}

// RunnerConfig holds dependencies for the replay runner.
type RunnerConfig struct {
	Redis     redisClient
	Source    string // manual-intervention queue
	Target    string // inbound queue
	Forgetter Forgetter
}

// Runner moves envelopes' original messages from Source to Target.
type Runner struct {
	rdb       redisClient
	source    string
	target    string
	forgetter Forgetter
}

// NewRunner creates a replay runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		rdb:       cfg.Redis,
		source:    cfg.Source,
		target:    cfg.Target,
		forgetter: cfg.Forgetter,
	}
}

// Run scans the source queue once, oldest first. Each envelope is rotated
// atomically from the tail to the head of the source, so it never leaves the
// queue while being inspected. Matching envelopes have their original message
// pushed onto the target and are only then removed from the source; a failure
// at any step leaves the envelope queued.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	n, err := r.rdb.LLen(ctx, r.source).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LLEN %s: %w", r.source, err)
	}

	slog.Info("starting replay",
		"source", r.source,
		"target", r.target,
		"queued", n,
		"error_types", req.ErrorTypes,
		"dry_run", req.DryRun,
	)

	result := &Result{}
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw, err := r.rdb.LMove(ctx, r.source, r.source, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("redis LMOVE %s: %w", r.source, err)
		}
		result.Scanned++

		replay, emailID, payload, valid := r.inspect(raw, req, result.Replayed)
		if !valid {
			result.Invalid++
		}
		if !replay {
			result.Kept++
			continue
		}
		if req.DryRun {
			result.Replayed++
			slog.Info("would replay message", "email_id", emailID)
			continue
		}

		if r.forgetter != nil && emailID != "" {
			if err := r.forgetter.Forget(ctx, emailID); err != nil {
				slog.Warn("failed to clear completed mark", "email_id", emailID, "error", err)
			}
		}

		if err := r.rdb.LPush(ctx, r.target, string(payload)).Err(); err != nil {
			return result, fmt.Errorf("redis LPUSH %s: %w", r.target, err)
		}
		// The envelope was just rotated to the head, so the first match is it.
		if err := r.rdb.LRem(ctx, r.source, 1, raw).Err(); err != nil {
			slog.Error("message replayed but envelope not removed",
				"email_id", emailID,
				"error", err,
			)
			return result, fmt.Errorf("redis LREM %s: %w", r.source, err)
		}
		result.Replayed++
		slog.Info("replayed message", "email_id", emailID)
	}

	result.Elapsed = time.Since(start)

	slog.Info("replay complete",
		"scanned", result.Scanned,
		"replayed", result.Replayed,
		"kept", result.Kept,
		"invalid", result.Invalid,
		"elapsed", result.Elapsed,
	)

	return result, nil
}

// inspect decides whether an envelope should be replayed and extracts the
// original message. Envelopes that cannot be decoded, or whose message is not
// an inbound message object, are never replayed.
func (r *Runner) inspect(raw string, req Request, replayed int) (replay bool, emailID string, payload []byte, valid bool) {
	var env models.ErrorEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return false, "", nil, false
	}
	var msg models.InboundMessage
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return false, "", nil, false
	}

	if req.Limit > 0 && replayed >= req.Limit {
		return false, msg.EmailID, nil, true
	}
	if !matches(env.ErrorType, req.ErrorTypes) {
		return false, msg.EmailID, nil, true
	}
	return true, msg.EmailID, env.Message, true
}

func matches(t models.ErrorType, wanted []models.ErrorType) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		if w == t {
			return true
		}
	}
	return false
}
