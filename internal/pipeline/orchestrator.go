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

// Package pipeline owns the charter request workflow: extraction, flight plan
// validation, vendor discovery with radius escalation, composition,
// persistence and routing of the outcome to the broker.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/go-faster/errors"

	"github.com/ameyabhat/jetfinder-be/internal/composer"
	"github.com/ameyabhat/jetfinder-be/internal/models"
)

// Analyzer turns email text into a charter analysis.
type Analyzer interface {
	Analyze(ctx context.Context, content string) (*models.CharterAnalysis, error)
}

// VendorSearcher runs one catalog search.
type VendorSearcher interface {
	Search(ctx context.Context, origin string, passengers *int, sizes []string, radius int) ([]string, error)
}

// Publisher sends a JSON message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// Store persists vendor responses.
type Store interface {
	UserIDByEmail(ctx context.Context, email string) (string, error)
	Write(ctx context.Context, rec *models.VendorResponseRecord) (*models.VendorResponseRecord, error)
	Get(ctx context.Context, userID, emailID string) (*models.VendorResponseRecord, error)
	Update(ctx context.Context, userID, emailID string, upd models.VendorResponseUpdate) (*models.VendorResponseRecord, error)
}

// Dedup remembers completed email IDs.
type Dedup interface {
	Seen(ctx context.Context, emailID string) (bool, error)
	MarkDone(ctx context.Context, emailID string) error
}

// Queues names the outbound queues.
type Queues struct {
	Outreach           string
	InternalError      string
	ManualIntervention string
}

// Outcome is how processing of one message ended.
type Outcome int

const (
	// Skipped means the message needed no action.
	Skipped Outcome = iota
	// Routed means a classified error envelope was published.
	Routed
	// Published means an outreach message was published.
	Published
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Routed:
		return "routed"
	case Published:
		return "published"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes a completed ProcessMessage call.
type Result struct {
	Outcome      Outcome
	ErrorType    models.ErrorType
	VendorEmails []string
	Radius       int
	Reason       string
}

// OrchestratorConfig holds the orchestrator's collaborators.
type OrchestratorConfig struct {
	Analyzer  Analyzer
	Searcher  VendorSearcher
	Publisher Publisher
	Store     Store
	Dedup     Dedup // optional
	Queues    Queues
	Policy    SearchPolicy
}

// Orchestrator runs the workflow for one worker. It is not safe for
// concurrent use when its VendorSearcher is not.
type Orchestrator struct {
	analyzer  Analyzer
	searcher  VendorSearcher
	publisher Publisher
	store     Store
	dedup     Dedup
	queues    Queues
	policy    SearchPolicy
}

// NewOrchestrator creates an orchestrator. A zero Policy uses
// DefaultSearchPolicy.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	policy := cfg.Policy
	if policy == (SearchPolicy{}) {
		policy = DefaultSearchPolicy
	}
	return &Orchestrator{
		analyzer:  cfg.Analyzer,
		searcher:  cfg.Searcher,
		publisher: cfg.Publisher,
		store:     cfg.Store,
		dedup:     cfg.Dedup,
		queues:    cfg.Queues,
		policy:    policy.normalised(),
	}
}

// HandleDelivery is the broker-facing entry point. Every failure inside the
// workflow is converted to an UnknownError envelope here, once. A non-nil
// return means the outcome could not be routed and the delivery must not be
// acknowledged.
//
// When a classified envelope was published to only some of its queues, the
// UnknownError fallback goes to the failed queues alone, so no queue holds
// two envelopes for the same email.
func (o *Orchestrator) HandleDelivery(ctx context.Context, payload []byte) error {
	var msg models.InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		err = errors.Wrap(err, "decode inbound message")
		slog.Error("undecodable inbound message", "error", err)
		return o.route(ctx, payload, models.UnknownError, err.Error(), fmt.Sprintf("%+v", err),
			o.queues.InternalError, o.queues.ManualIntervention)
	}

	log := slog.With("email_id", msg.EmailID)

	if o.dedup != nil && msg.EmailID != "" {
		seen, err := o.dedup.Seen(ctx, msg.EmailID)
		if err != nil {
			log.Warn("dedup check failed, processing anyway", "error", err)
		} else if seen {
			log.Info("email already processed, skipping redelivery")
			return nil
		}
	}

	res, trace, err := o.safeProcess(ctx, msg, payload)
	if err != nil {
		log.Error("processing failed", "error", err)

		// A classified envelope that reached some queues is only reported
		// to the ones it missed.
		queues := []string{o.queues.InternalError, o.queues.ManualIntervention}
		var partial *routeError
		if errors.As(err, &partial) {
			queues = partial.failed
		}
		if routeErr := o.route(ctx, payload, models.UnknownError, err.Error(), trace, queues...); routeErr != nil {
			return routeErr
		}
	} else {
		log.Info("message processed",
			"outcome", res.Outcome.String(),
			"error_type", res.ErrorType,
			"vendors", len(res.VendorEmails),
		)
	}

	if o.dedup != nil && msg.EmailID != "" {
		if err := o.dedup.MarkDone(ctx, msg.EmailID); err != nil {
			log.Warn("failed to record completed email", "error", err)
		}
	}
	return nil
}

// safeProcess runs processMessage, converting a panic into an error with the
// goroutine stack as its trace.
func (o *Orchestrator) safeProcess(ctx context.Context, msg models.InboundMessage, raw []byte) (res Result, trace string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
			trace = string(debug.Stack())
		}
	}()

	res, err = o.processMessage(ctx, msg, raw)
	if err != nil {
		trace = fmt.Sprintf("%+v", err)
	}
	return res, trace, err
}

// ProcessMessage runs the workflow for one inbound message. Classified
// failures are routed to the error queues and reported in the Result; the
// returned error is for unclassified failures, which the caller routes.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg models.InboundMessage) (Result, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Result{}, errors.Wrap(err, "encode inbound message")
	}
	return o.processMessage(ctx, msg, raw)
}

func (o *Orchestrator) processMessage(ctx context.Context, msg models.InboundMessage, raw []byte) (Result, error) {
	log := slog.With("email_id", msg.EmailID)

	if strings.TrimSpace(msg.Content) == "" {
		log.Info("no email content")
		return Result{Outcome: Skipped, Reason: "empty content"}, nil
	}

	log.Info("analyzing email")
	analysis, err := o.analyzer.Analyze(ctx, msg.Content)
	if err != nil {
		return Result{}, errors.Wrap(err, "analyze email")
	}
	if analysis == nil {
		return Result{}, errors.New("analyzer returned no analysis")
	}
	if !analysis.IsCharterRequest {
		log.Info("not a charter request")
		return Result{Outcome: Skipped, Reason: "not a charter request"}, nil
	}

	if !ValidateFlightPlan(analysis) {
		log.Warn("invalid flight plan", "legs", len(analysis.Flights))
		if err := o.route(ctx, raw, models.FlightPlanError,
			"flight legs are out of order or not continuous", "",
			o.queues.InternalError, o.queues.ManualIntervention); err != nil {
			return Result{}, err
		}
		return Result{Outcome: Routed, ErrorType: models.FlightPlanError}, nil
	}

	// Only the first leg drives the search.
	first := analysis.Flights[0]
	emails, radius, err := o.DiscoverVendors(ctx, first.Origin, first.Passengers, []string{first.AircraftSize})
	if err != nil {
		return Result{}, errors.Wrap(err, "discover vendors")
	}
	if len(emails) == 0 {
		log.Info("no vendor emails found", "origin", first.Origin, "radius", radius)
		if err := o.route(ctx, raw, models.NoVendorEmailsFound,
			fmt.Sprintf("no vendors within %d miles of %s", radius, first.Origin), "",
			o.queues.ManualIntervention); err != nil {
			return Result{}, err
		}
		return Result{Outcome: Routed, ErrorType: models.NoVendorEmailsFound, Radius: radius}, nil
	}

	email, err := composer.Compose(analysis)
	if err != nil {
		return Result{}, errors.Wrap(err, "compose email")
	}

	userID, err := o.store.UserIDByEmail(ctx, msg.UserEmail)
	if err != nil {
		return Result{}, errors.Wrap(err, "resolve user")
	}

	if _, err := o.store.Write(ctx, &models.VendorResponseRecord{
		UserID:        userID,
		EmailID:       msg.EmailID,
		VendorEmails:  emails,
		RequestBody:   msg.Content,
		Subject:       email.Subject,
		Body:          email.Body,
		Analysis:      analysis,
		Radius:        radius,
		PlaneSize:     first.AircraftSize,
		NumPassengers: first.Passengers,
	}); err != nil {
		return Result{}, errors.Wrap(err, "persist vendor response")
	}

	if err := o.publisher.Publish(ctx, o.queues.Outreach, models.OutreachMessage{
		VendorEmails: emails,
		EmailID:      msg.EmailID,
		ThreadID:     msg.ThreadID,
		UserEmail:    msg.UserEmail,
		Body:         email.Body,
		Subject:      email.Subject,
	}); err != nil {
		return Result{}, errors.Wrap(err, "publish outreach")
	}

	log.Info("vendor outreach published", "vendors", len(emails), "radius", radius)
	return Result{Outcome: Published, VendorEmails: emails, Radius: radius}, nil
}
