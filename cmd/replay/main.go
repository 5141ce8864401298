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

// JetFinder — Manual Intervention Replay Command
//
// Standalone CLI tool that moves messages parked on the manual-intervention
// queue back onto the inbound queue, for example after fixing a catalog
// session or an extraction outage.
//
// Usage:
//
//	go run ./cmd/replay/ [--type UnknownError,NoVendorEmailsFound] [--limit 10] [--dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ameyabhat/jetfinder-be/internal/config"
	"github.com/ameyabhat/jetfinder-be/internal/dedup"
	"github.com/ameyabhat/jetfinder-be/internal/models"
	"github.com/ameyabhat/jetfinder-be/internal/replay"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	typesFlag := flag.String("type", "", "Comma-separated error types to replay (empty = all)")
	limitFlag := flag.Int("limit", 0, "Maximum number of messages to replay (0 = no limit)")
	dryRun := flag.Bool("dry-run", false, "Report what would be replayed without moving anything")
	flag.Parse()

	errorTypes, err := parseErrorTypes(*typesFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateBroker(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	runner := replay.NewRunner(replay.RunnerConfig{
		Redis:     rdb,
		Source:    cfg.Redis.Queues.ManualIntervention,
		Target:    cfg.Redis.Queues.Inbound,
		Forgetter: dedup.NewFilter(rdb, cfg.Redis.DedupTTL),
	})

	result, err := runner.Run(ctx, replay.Request{
		ErrorTypes: errorTypes,
		Limit:      *limitFlag,
		DryRun:     *dryRun,
	})
	if err != nil {
		slog.Error("replay failed", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	verb := "Replayed"
	if *dryRun {
		verb = "Would replay"
	}
	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Scanned:  %d\n", result.Scanned)
	fmt.Printf("%s: %d\n", verb, result.Replayed)
	fmt.Printf("Kept:     %d (invalid: %d)\n", result.Kept, result.Invalid)
	fmt.Printf("Elapsed:  %s\n", result.Elapsed)
}

func parseErrorTypes(raw string) ([]models.ErrorType, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []models.ErrorType
	for _, part := range strings.Split(raw, ",") {
		t := models.ErrorType(strings.TrimSpace(part))
		switch t {
		case models.FlightPlanError, models.NoVendorEmailsFound, models.UnknownError:
			out = append(out, t)
		default:
			return nil, fmt.Errorf("unknown error type %q", t)
		}
	}
	return out, nil
}
