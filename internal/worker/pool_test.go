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

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ameyabhat/jetfinder-be/internal/queue"
)

// fakeConsumer delivers its payloads, then blocks until cancelled or fails
// with err.
type fakeConsumer struct {
	payloads []string
	err      error
}

func (f *fakeConsumer) Run(ctx context.Context, handle queue.Handler) error {
	for _, p := range f.payloads {
		if err := handle(ctx, []byte(p)); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

type recorder struct {
	mu     sync.Mutex
	seen   map[string][]string
	closed map[string]bool
}

func newRecorder() *recorder {
	return &recorder{seen: map[string][]string{}, closed: map[string]bool{}}
}

func (r *recorder) factory(payloads map[string][]string, failing map[string]error) Factory {
	return func(_ context.Context, id string) (*Unit, error) {
		return &Unit{
			Consumer: &fakeConsumer{payloads: payloads[id], err: failing[id]},
			Handler: func(_ context.Context, payload []byte) error {
				r.mu.Lock()
				defer r.mu.Unlock()
				r.seen[id] = append(r.seen[id], string(payload))
				return nil
			},
			Close: func() error {
				r.mu.Lock()
				defer r.mu.Unlock()
				r.closed[id] = true
				return nil
			},
		}, nil
	}
}

func TestPool_EachWorkerHasOwnUnit(t *testing.T) {
	rec := newRecorder()
	pool := NewPool(PoolConfig{
		Size:     2,
		IDPrefix: "host",
		Factory: rec.factory(map[string][]string{
			"host-0": {"a", "b"},
			"host-1": {"c"},
		}, nil),
	})

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		done := len(rec.seen["host-0"]) == 2 && len(rec.seen["host-1"]) == 1
		rec.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workers did not process messages: %v", rec.seen)
		}
		time.Sleep(5 * time.Millisecond)
	}

	pool.Stop()

	if !rec.closed["host-0"] || !rec.closed["host-1"] {
		t.Errorf("units not closed: %v", rec.closed)
	}
}

func TestPool_ReportsConsumerFailure(t *testing.T) {
	rec := newRecorder()
	pool := NewPool(PoolConfig{
		Size:    2,
		Factory: rec.factory(nil, map[string]error{"worker-1": errors.New("reconnect exhausted")}),
	})

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop()

	select {
	case err := <-pool.Errors():
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestPool_StartFailureClosesBuiltUnits(t *testing.T) {
	rec := newRecorder()
	base := rec.factory(nil, nil)
	pool := NewPool(PoolConfig{
		Size: 3,
		Factory: func(ctx context.Context, id string) (*Unit, error) {
			if id == "worker-2" {
				return nil, errors.New("redis url invalid")
			}
			return base(ctx, id)
		},
	})

	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if !rec.closed["worker-0"] || !rec.closed["worker-1"] {
		t.Errorf("built units not closed: %v", rec.closed)
	}
}
