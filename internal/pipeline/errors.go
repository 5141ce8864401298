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

package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-faster/errors"

	"github.com/ameyabhat/jetfinder-be/internal/models"
)

var (
	// ErrUnknown is returned by UpdateFlightSearch when the record cannot be
	// recomputed for any reason other than an empty search.
	ErrUnknown = errors.New(string(models.UnknownError))

	// ErrNoVendorEmailsFound is returned when a search found no contacts.
	ErrNoVendorEmailsFound = errors.New(string(models.NoVendorEmailsFound))
)

// routeError reports the queues an envelope could not be published to.
type routeError struct {
	failed []string
	err    error
}

func (e *routeError) Error() string { return e.err.Error() }
func (e *routeError) Unwrap() error { return e.err }

// route publishes an error envelope carrying the original payload to each of
// the given queues. Every queue is attempted; a failure is returned as a
// *routeError naming the queues that did not receive the envelope.
func (o *Orchestrator) route(ctx context.Context, raw []byte, errType models.ErrorType, detail, trace string, queues ...string) error {
	env := models.ErrorEnvelope{
		ErrorType:  errType,
		Message:    json.RawMessage(raw),
		Error:      detail,
		Stacktrace: trace,
	}
	if !json.Valid(raw) {
		// Keep the envelope valid JSON when the delivery itself was garbage.
		quoted, _ := json.Marshal(string(raw))
		env.Message = quoted
	}

	var (
		firstErr error
		failed   []string
	)
	for _, q := range queues {
		if err := o.publisher.Publish(ctx, q, env); err != nil {
			slog.Error("failed to route error envelope",
				"queue", q,
				"error_type", errType,
				"error", err,
			)
			failed = append(failed, q)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "route %s to %s", errType, q)
			}
		}
	}
	if firstErr != nil {
		return &routeError{failed: failed, err: firstErr}
	}
	return nil
}
