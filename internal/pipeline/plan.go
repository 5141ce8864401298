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
	"strings"

	"github.com/ameyabhat/jetfinder-be/internal/models"
)

// ValidateFlightPlan reports whether the legs of analysis form a coherent
// itinerary. A single leg is always valid. With several legs, travel dates
// must be strictly increasing and each leg must depart from where the
// previous one arrived; one violation invalidates the whole plan.
func ValidateFlightPlan(analysis *models.CharterAnalysis) bool {
	if analysis == nil || len(analysis.Flights) == 0 {
		return false
	}

	legs := analysis.Flights
	for i := 1; i < len(legs); i++ {
		prev, cur := legs[i-1], legs[i]
		if !cur.TravelDate.After(prev.TravelDate.Time) {
			return false
		}
		if !sameAirport(prev.Destination, cur.Origin) {
			return false
		}
	}
	return true
}

func sameAirport(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
