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

package replay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/ameyabhat/jetfinder-be/internal/models"
)

// fakeRedis holds lists with index 0 as the LEFT end.
type fakeRedis struct {
	mu      sync.Mutex
	lists   map[string][]string
	pushErr map[string]error // per-key LPUSH failures
}

func (f *fakeRedis) LLen(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

// LMove only supports RIGHT to LEFT, which is all the runner uses.
func (f *fakeRedis) LMove(_ context.Context, source, destination, _, _ string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[source]
	if len(l) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	v := l[len(l)-1]
	f.lists[source] = l[:len(l)-1]
	f.lists[destination] = append([]string{v}, f.lists[destination]...)
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pushErr[key]; err != nil {
		return redis.NewIntResult(0, err)
	}
	for _, v := range values {
		f.lists[key] = append([]string{v.(string)}, f.lists[key]...)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) LRem(_ context.Context, key string, count int64, value interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	removed := int64(0)
	for _, v := range f.lists[key] {
		if v == value.(string) && removed < count {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	f.lists[key] = kept
	return redis.NewIntResult(removed, nil)
}

type mockForgetter struct {
	mu        sync.Mutex
	forgotten []string
}

func (m *mockForgetter) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgotten = append(m.forgotten, id)
	return nil
}

func envelope(t *testing.T, errType models.ErrorType, emailID string) string {
	t.Helper()
	msg, _ := json.Marshal(models.InboundMessage{EmailID: emailID, Content: "need a jet"})
	data, err := json.Marshal(models.ErrorEnvelope{ErrorType: errType, Message: msg})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

// seed pushes envelopes so the first argument is the oldest.
func seed(t *testing.T, envs ...string) *fakeRedis {
	t.Helper()
	rdb := &fakeRedis{lists: map[string][]string{}}
	for _, e := range envs {
		rdb.LPush(context.Background(), "manual", e)
	}
	return rdb
}

func inboundIDs(t *testing.T, rdb *fakeRedis) []string {
	t.Helper()
	var ids []string
	l := rdb.lists["inbox"]
	for i := len(l) - 1; i >= 0; i-- {
		var msg models.InboundMessage
		if err := json.Unmarshal([]byte(l[i]), &msg); err != nil {
			t.Fatalf("inbound payload is not a message: %v", err)
		}
		ids = append(ids, msg.EmailID)
	}
	return ids
}

func TestReplay_FiltersByErrorType(t *testing.T) {
	rdb := seed(t,
		envelope(t, models.UnknownError, "e1"),
		envelope(t, models.NoVendorEmailsFound, "e2"),
		envelope(t, models.UnknownError, "e3"),
	)
	forget := &mockForgetter{}
	r := NewRunner(RunnerConfig{Redis: rdb, Source: "manual", Target: "inbox", Forgetter: forget})

	res, err := r.Run(context.Background(), Request{ErrorTypes: []models.ErrorType{models.UnknownError}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Scanned != 3 || res.Replayed != 2 || res.Kept != 1 {
		t.Errorf("result = %+v", res)
	}
	if ids := inboundIDs(t, rdb); len(ids) != 2 || ids[0] != "e1" || ids[1] != "e3" {
		t.Errorf("replayed = %v, want [e1 e3]", ids)
	}
	if len(rdb.lists["manual"]) != 1 {
		t.Errorf("manual queue = %v, want the NoVendorEmailsFound envelope", rdb.lists["manual"])
	}
	if len(forget.forgotten) != 2 {
		t.Errorf("forgotten = %v, want 2 ids", forget.forgotten)
	}
}

func TestReplay_DryRunMovesNothing(t *testing.T) {
	first := envelope(t, models.UnknownError, "e1")
	second := envelope(t, models.FlightPlanError, "e2")
	rdb := seed(t, first, second)
	r := NewRunner(RunnerConfig{Redis: rdb, Source: "manual", Target: "inbox"})

	res, err := r.Run(context.Background(), Request{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Replayed != 2 {
		t.Errorf("would replay = %d, want 2", res.Replayed)
	}
	if len(rdb.lists["inbox"]) != 0 {
		t.Errorf("inbox = %v, want empty", rdb.lists["inbox"])
	}
	// Order is preserved after a full rotation.
	manual := rdb.lists["manual"]
	if len(manual) != 2 || manual[1] != first || manual[0] != second {
		t.Errorf("manual queue order changed: %v", manual)
	}
}

func TestReplay_Limit(t *testing.T) {
	rdb := seed(t,
		envelope(t, models.UnknownError, "e1"),
		envelope(t, models.UnknownError, "e2"),
		envelope(t, models.UnknownError, "e3"),
	)
	r := NewRunner(RunnerConfig{Redis: rdb, Source: "manual", Target: "inbox"})

	res, err := r.Run(context.Background(), Request{Limit: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Replayed != 1 || res.Kept != 2 {
		t.Errorf("result = %+v", res)
	}
	if ids := inboundIDs(t, rdb); len(ids) != 1 || ids[0] != "e1" {
		t.Errorf("replayed = %v, want [e1]", ids)
	}
}

func TestReplay_KeepsInvalidEnvelopes(t *testing.T) {
	quoted, _ := json.Marshal(models.ErrorEnvelope{ErrorType: models.UnknownError, Message: json.RawMessage(`"not json"`)})
	rdb := seed(t, "garbage", string(quoted))
	r := NewRunner(RunnerConfig{Redis: rdb, Source: "manual", Target: "inbox"})

	res, err := r.Run(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalid != 2 || res.Replayed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(rdb.lists["manual"]) != 2 {
		t.Errorf("invalid envelopes should stay queued: %v", rdb.lists["manual"])
	}
}

func TestReplay_TargetFailureKeepsEnvelope(t *testing.T) {
	env := envelope(t, models.NoVendorEmailsFound, "e1")
	rdb := seed(t, env)
	rdb.pushErr = map[string]error{"inbox": errors.New("connection reset")}
	r := NewRunner(RunnerConfig{Redis: rdb, Source: "manual", Target: "inbox"})

	res, err := r.Run(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error when the target queue is unreachable")
	}
	if res.Replayed != 0 {
		t.Errorf("replayed = %d, want 0", res.Replayed)
	}
	if manual := rdb.lists["manual"]; len(manual) != 1 || manual[0] != env {
		t.Errorf("manual queue = %v, want the envelope still queued", manual)
	}
	if len(rdb.lists["inbox"]) != 0 {
		t.Errorf("inbox = %v, want empty", rdb.lists["inbox"])
	}
}
