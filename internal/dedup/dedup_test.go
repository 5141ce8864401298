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

package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	n := int64(0)
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.keys[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(0)
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, f.err)
}

func TestFilter_SeenAfterMarkDone(t *testing.T) {
	rdb := &fakeRedis{keys: map[string]time.Duration{}}
	f := NewFilter(rdb, time.Hour)
	ctx := context.Background()

	seen, err := f.Seen(ctx, "email-1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("fresh email reported as seen")
	}

	if err := f.MarkDone(ctx, "email-1"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	seen, err = f.Seen(ctx, "email-1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Error("marked email not reported as seen")
	}
	if ttl := rdb.keys[keyPrefix+"email-1"]; ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}
}

func TestFilter_DefaultTTL(t *testing.T) {
	rdb := &fakeRedis{keys: map[string]time.Duration{}}
	f := NewFilter(rdb, 0)
	if err := f.MarkDone(context.Background(), "x"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if ttl := rdb.keys[keyPrefix+"x"]; ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTTL)
	}
}

func TestFilter_PropagatesRedisError(t *testing.T) {
	rdb := &fakeRedis{keys: map[string]time.Duration{}, err: errors.New("down")}
	f := NewFilter(rdb, time.Hour)
	if _, err := f.Seen(context.Background(), "x"); err == nil {
		t.Error("expected error from Seen")
	}
	if err := f.MarkDone(context.Background(), "x"); err == nil {
		t.Error("expected error from MarkDone")
	}
}

func TestFilter_Forget(t *testing.T) {
	rdb := &fakeRedis{keys: map[string]time.Duration{}}
	f := NewFilter(rdb, time.Hour)
	ctx := context.Background()

	if err := f.MarkDone(ctx, "email-2"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := f.Forget(ctx, "email-2"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if seen, _ := f.Seen(ctx, "email-2"); seen {
		t.Error("forgotten email still reported as seen")
	}
}
