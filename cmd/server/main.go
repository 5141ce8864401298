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

// JetFinder — Vendor Discovery Service
//
// Entry point for the charter pipeline. It:
//  1. Loads configuration from config.yaml, .env and the environment
//  2. Connects to PostgreSQL (applying migrations) and Redis
//  3. Starts the recompute/listing API and health check
//  4. Starts one queue consumer per worker, each with its own Redis
//     connection and vendor catalog session
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ameyabhat/jetfinder-be/internal/api"
	"github.com/ameyabhat/jetfinder-be/internal/config"
	"github.com/ameyabhat/jetfinder-be/internal/dedup"
	"github.com/ameyabhat/jetfinder-be/internal/extraction"
	"github.com/ameyabhat/jetfinder-be/internal/flightfinder"
	"github.com/ameyabhat/jetfinder-be/internal/pipeline"
	"github.com/ameyabhat/jetfinder-be/internal/queue"
	"github.com/ameyabhat/jetfinder-be/internal/store"
	"github.com/ameyabhat/jetfinder-be/internal/worker"
)

func main() {
	// Structured JSON logging; level is adjusted once config is loaded.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting JetFinder vendor discovery service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Warn("unknown log level, using info", "log_level", cfg.LogLevel)
	}

	slog.Info("configuration loaded",
		"workers", cfg.Workers,
		"provider", cfg.Extraction.Provider,
		"inbound_queue", cfg.Redis.Queues.Inbound,
		"radius_increment", cfg.Search.RadiusIncrement,
		"radius_cap", cfg.Search.RadiusCap,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("invalid DATABASE_URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = cfg.Database.MaxConns
	pgConfig.HealthCheckPeriod = 30 * time.Second

	pgPool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	if err := store.Migrate(ctx, pgPool); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	st := store.New(pgPool)
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	rdb, err := newRedisClient(cfg.Redis.URL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	publisher := queue.NewPublisher(rdb)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	filter := dedup.NewFilter(rdb, cfg.Redis.DedupTTL)

	// --- Semantic Extraction ---
	analyzer, err := extraction.New(cfg.Extraction)
	if err != nil {
		slog.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}

	queues := pipeline.Queues{
		Outreach:           cfg.Redis.Queues.Outreach,
		InternalError:      cfg.Redis.Queues.InternalError,
		ManualIntervention: cfg.Redis.Queues.ManualIntervention,
	}
	policy := pipeline.SearchPolicy{
		Start:     0,
		Increment: cfg.Search.RadiusIncrement,
		Cap:       cfg.Search.RadiusCap,
	}

	// --- API (recompute uses its own catalog session) ---
	apiOrchestrator := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Analyzer:  analyzer,
		Searcher:  flightfinder.NewClient(cfg.FlightFinder.BaseURL, cfg.FlightFinder.SessionToken, cfg.FlightFinder.Timeout),
		Publisher: publisher,
		Store:     st,
		Queues:    queues,
		Policy:    policy,
	})

	handler := api.NewHandler(api.HandlerConfig{
		Recomputer: apiOrchestrator,
		Lister:     st,
		HealthChecks: []api.HealthCheck{
			{Name: "redis", Check: publisher.Ping},
			{Name: "postgres", Check: st.Ping},
		},
		AllowedOrigins: cfg.CORSOrigins,
	})
	ready, err := api.Serve(ctx, cfg.Port, handler)
	if err != nil {
		slog.Error("failed to start api server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Worker Pool ---
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "jetfinder"
	}

	workers := worker.NewPool(worker.PoolConfig{
		Size:     cfg.Workers,
		IDPrefix: hostname,
		Factory: func(ctx context.Context, workerID string) (*worker.Unit, error) {
			wrdb, err := newRedisClient(cfg.Redis.URL)
			if err != nil {
				return nil, err
			}

			consumer := queue.NewConsumer(wrdb, queue.ConsumerConfig{
				Queue:                cfg.Redis.Queues.Inbound,
				WorkerID:             workerID,
				BlockTimeout:         cfg.Redis.BlockTimeout,
				MaxReconnectAttempts: cfg.Redis.MaxReconnectAttempts,
				ReconnectBaseDelay:   cfg.Redis.ReconnectBaseDelay,
				ReconnectMaxDelay:    cfg.Redis.ReconnectMaxDelay,
			})

			orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
				Analyzer:  analyzer,
				Searcher:  flightfinder.NewClient(cfg.FlightFinder.BaseURL, cfg.FlightFinder.SessionToken, cfg.FlightFinder.Timeout),
				Publisher: queue.NewPublisher(wrdb),
				Store:     st,
				Dedup:     filter,
				Queues:    queues,
				Policy:    policy,
			})

			return &worker.Unit{
				Consumer: consumer,
				Handler:  orch.HandleDelivery,
				Close:    wrdb.Close,
			}, nil
		},
	})
	if err := workers.Start(ctx); err != nil {
		slog.Error("failed to start workers", "error", err)
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	exitCode := 0
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-workers.Errors():
		slog.Error("worker failed, shutting down", "error", err)
		exitCode = 1
	}

	cancel() // Stop the API server and all consumers
	workers.Stop()

	slog.Info("vendor discovery service stopped")
	if exitCode != 0 {
		rdb.Close()
		pgPool.Close()
		os.Exit(exitCode)
	}
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}
