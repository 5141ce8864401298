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
	"log/slog"

	"github.com/go-faster/errors"

	"github.com/ameyabhat/jetfinder-be/internal/composer"
	"github.com/ameyabhat/jetfinder-be/internal/models"
)

// UpdateFlightSearch re-runs the vendor search for a stored response with the
// request's overrides applied, then updates the stored record. Unset
// overrides keep the stored analysis values; the radius defaults to 0. The
// search runs once at that radius, without escalation.
//
// It returns ErrNoVendorEmailsFound when the search is empty, leaving the
// record untouched, and ErrUnknown for every other failure.
func (o *Orchestrator) UpdateFlightSearch(ctx context.Context, req models.FlightUpdateRequest) (*models.VendorResponseRecord, error) {
	log := slog.With("user_id", req.UserID, "email_id", req.MessageID)

	rec, err := o.store.Get(ctx, req.UserID, req.MessageID)
	if err != nil {
		log.Error("failed to load vendor response", "error", err)
		return nil, errors.Wrap(ErrUnknown, "load vendor response")
	}
	if rec == nil {
		log.Warn("vendor response not found")
		return nil, errors.Wrap(ErrUnknown, "vendor response not found")
	}
	if rec.Analysis == nil || len(rec.Analysis.Flights) == 0 {
		log.Warn("stored analysis missing or has no flights")
		return nil, errors.Wrap(ErrUnknown, "stored analysis unusable")
	}

	first := rec.Analysis.Flights[0]

	size := first.AircraftSize
	if req.PlaneSize != nil {
		size = *req.PlaneSize
	}
	passengers := first.Passengers
	if req.NumberOfPassengers != nil {
		passengers = req.NumberOfPassengers
	}
	radius := 0
	if req.SearchRadius != nil {
		radius = *req.SearchRadius
	}

	emails, err := o.searcher.Search(ctx, first.Origin, passengers, []string{size}, radius)
	if err != nil {
		log.Error("recompute search failed", "error", err)
		return nil, errors.Wrap(ErrUnknown, "vendor search")
	}
	if len(emails) == 0 {
		log.Info("recompute found no vendors", "radius", radius)
		return nil, ErrNoVendorEmailsFound
	}

	adjusted := rec.Analysis.Clone()
	for i := range adjusted.Flights {
		adjusted.Flights[i].AircraftSize = size
		if passengers != nil {
			n := *passengers
			adjusted.Flights[i].Passengers = &n
		} else {
			adjusted.Flights[i].Passengers = nil
		}
	}

	email, err := composer.Compose(adjusted)
	if err != nil {
		log.Error("recompute compose failed", "error", err)
		return nil, errors.Wrap(ErrUnknown, "compose email")
	}

	updated, err := o.store.Update(ctx, req.UserID, req.MessageID, models.VendorResponseUpdate{
		VendorEmails:  emails,
		Subject:       &email.Subject,
		Body:          &email.Body,
		Radius:        &radius,
		PlaneSize:     &size,
		NumPassengers: passengers,
	})
	if err != nil {
		log.Error("failed to update vendor response", "error", err)
		return nil, errors.Wrap(ErrUnknown, "update vendor response")
	}
	if updated == nil {
		return nil, errors.Wrap(ErrUnknown, "vendor response disappeared")
	}

	log.Info("vendor response recomputed", "vendors", len(emails), "radius", radius)
	return updated, nil
}
