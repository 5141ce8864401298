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

// Package dedup remembers which inbound emails have already been fully
// processed. The broker delivers at least once, so a message can reappear
// after a crash between publishing the outcome and acknowledging it.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a completed email ID is remembered.
	DefaultTTL = 72 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "jetfinder:done:"
)

// redisClient is the subset of the Redis client the filter needs.
type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Filter tracks which email IDs have reached a terminal outcome.
type Filter struct {
	rdb redisClient
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis. A non-positive ttl uses
// DefaultTTL.
func NewFilter(rdb redisClient, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb: rdb,
		ttl: ttl,
	}
}

// Seen reports whether emailID was already marked done.
func (f *Filter) Seen(ctx context.Context, emailID string) (bool, error) {
	n, err := f.rdb.Exists(ctx, keyPrefix+emailID).Result()
	if err != nil {
		return false, fmt.Errorf("dedup EXISTS: %w", err)
	}
	return n > 0, nil
}

// MarkDone records that emailID reached a terminal outcome.
func (f *Filter) MarkDone(ctx context.Context, emailID string) error {
	if err := f.rdb.Set(ctx, keyPrefix+emailID, 1, f.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET: %w", err)
	}
	return nil
}

// Forget clears the completed mark so a replayed message is processed again.
func (f *Filter) Forget(ctx context.Context, emailID string) error {
	if err := f.rdb.Del(ctx, keyPrefix+emailID).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}
