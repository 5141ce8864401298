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

// Package worker runs a fixed number of independent queue consumers. Each
// worker owns its broker connection and vendor catalog session, so nothing
// stateful is shared between concurrently processed messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ameyabhat/jetfinder-be/internal/queue"
)

// Consumer delivers messages to a handler until its context is cancelled.
type Consumer interface {
	Run(ctx context.Context, handle queue.Handler) error
}

// Unit is everything one worker owns.
type Unit struct {
	Consumer Consumer
	Handler  queue.Handler

	// Close releases the worker's connections. Optional.
	Close func() error
}

// Factory builds the unit for a worker.
type Factory func(ctx context.Context, workerID string) (*Unit, error)

// PoolConfig configures a Pool.
type PoolConfig struct {
	Size int

	// IDPrefix names workers "<prefix>-<n>". Worker IDs name the per-worker
	// processing lists, so they must be stable across restarts.
	IDPrefix string
	Factory  Factory
}

// Pool runs Size workers. Start builds all units before any worker begins
// consuming; Stop cancels them and waits.
type Pool struct {
	size     int
	idPrefix string
	factory  Factory

	units  []*Unit
	errs   chan error
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool.
func NewPool(cfg PoolConfig) *Pool {
	size := cfg.Size
	if size < 1 {
		size = 1
	}
	prefix := cfg.IDPrefix
	if prefix == "" {
		prefix = "worker"
	}
	return &Pool{
		size:     size,
		idPrefix: prefix,
		factory:  cfg.Factory,
		errs:     make(chan error, size),
	}
}

// WorkerID returns the ID of worker n.
func (p *Pool) WorkerID(n int) string {
	return fmt.Sprintf("%s-%d", p.idPrefix, n)
}

// Start builds every worker and starts consuming. If any worker cannot be
// built, the ones already built are closed and the error is returned.
func (p *Pool) Start(ctx context.Context) error {
	for i := 0; i < p.size; i++ {
		id := p.WorkerID(i)
		unit, err := p.factory(ctx, id)
		if err != nil {
			p.closeUnits()
			return fmt.Errorf("build worker %s: %w", id, err)
		}
		p.units = append(p.units, unit)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i, unit := range p.units {
		p.wg.Add(1)
		go p.run(runCtx, p.WorkerID(i), unit)
	}

	slog.Info("worker pool started", "workers", p.size)
	return nil
}

func (p *Pool) run(ctx context.Context, id string, unit *Unit) {
	defer p.wg.Done()

	err := unit.Consumer.Run(ctx, unit.Handler)
	if err != nil {
		slog.Error("worker stopped with error", "worker", id, "error", err)
		p.errs <- fmt.Errorf("worker %s: %w", id, err)
		return
	}
	slog.Info("worker stopped", "worker", id)
}

// Errors reports workers that stopped because their consumer failed, for
// example after exhausting broker reconnects.
func (p *Pool) Errors() <-chan error {
	return p.errs
}

// Stop cancels all workers, waits for in-flight messages to finish and closes
// their connections.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.closeUnits()
	slog.Info("worker pool stopped")
}

func (p *Pool) closeUnits() {
	for _, unit := range p.units {
		if unit.Close == nil {
			continue
		}
		if err := unit.Close(); err != nil {
			slog.Warn("failed to close worker", "error", err)
		}
	}
	p.units = nil
}
