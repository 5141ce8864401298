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
)

// SearchPolicy controls radius escalation, in miles.
type SearchPolicy struct {
	Start     int
	Increment int
	Cap       int
}

// DefaultSearchPolicy searches at 0, 50, 100, 150, 200 and 250 miles.
var DefaultSearchPolicy = SearchPolicy{Start: 0, Increment: 50, Cap: 250}

func (p SearchPolicy) normalised() SearchPolicy {
	if p.Increment <= 0 {
		p.Increment = DefaultSearchPolicy.Increment
	}
	if p.Start < 0 {
		p.Start = 0
	}
	return p
}

// DiscoverVendors widens the search radius until the catalog returns at least
// one contact or the cap is passed. It returns the contacts and the radius
// that produced them (the last radius tried when nothing was found). A search
// error stops the escalation.
func (o *Orchestrator) DiscoverVendors(ctx context.Context, origin string, passengers *int, sizes []string) ([]string, int, error) {
	p := o.policy
	radius := p.Start
	last := radius

	for ; radius <= p.Cap; radius += p.Increment {
		last = radius

		emails, err := o.searcher.Search(ctx, origin, passengers, sizes, radius)
		if err != nil {
			return nil, radius, errors.Wrapf(err, "vendor search at radius %d", radius)
		}
		if len(emails) > 0 {
			return emails, radius, nil
		}

		slog.Debug("no vendors at radius, widening",
			"origin", origin,
			"radius", radius,
		)

		if err := ctx.Err(); err != nil {
			return nil, radius, err
		}
	}

	return nil, last, nil
}
