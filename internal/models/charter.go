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

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UnknownAircraftSize is used when the extraction service could not infer a size.
const UnknownAircraftSize = "unknown"

// UserInfo is the customer contact block extracted from the email. Every field
// is optional.
type UserInfo struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	State *string `json:"state,omitempty"`
}

// CharterAnalysis is the structured result of the extraction service.
type CharterAnalysis struct {
	IsCharterRequest bool        `json:"is_charter_request"`
	UserInfo         *UserInfo   `json:"user_info,omitempty"`
	Flights          []FlightLeg `json:"flights"`
}

// FlightLeg is one origin→destination segment.
type FlightLeg struct {
	Origin       string     `json:"origin"`
	Destination  string     `json:"destination"`
	TravelDate   TravelDate `json:"travel_date"`
	Passengers   *int       `json:"passengers"`
	AircraftSize string     `json:"aircraft_size"`
}

// UnmarshalJSON fills AircraftSize with UnknownAircraftSize when absent or null.
func (l *FlightLeg) UnmarshalJSON(data []byte) error {
	type plain FlightLeg
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.AircraftSize) == "" {
		p.AircraftSize = UnknownAircraftSize
	}
	*l = FlightLeg(p)
	return nil
}

// Clone returns a deep copy so callers can override leg fields without
// touching the original snapshot.
func (a *CharterAnalysis) Clone() *CharterAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	if a.UserInfo != nil {
		ui := *a.UserInfo
		out.UserInfo = &ui
	}
	out.Flights = make([]FlightLeg, len(a.Flights))
	for i, leg := range a.Flights {
		if leg.Passengers != nil {
			n := *leg.Passengers
			leg.Passengers = &n
		}
		out.Flights[i] = leg
	}
	return &out
}

// travelDateLayouts are tried in order when decoding a travel date.
var travelDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// TravelDate is a timestamp that tolerates the date shapes the extraction
// service produces.
type TravelDate struct {
	time.Time
}

// ParseTravelDate parses s using the accepted layouts.
func ParseTravelDate(s string) (TravelDate, error) {
	s = strings.TrimSpace(s)
	for _, layout := range travelDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TravelDate{Time: t}, nil
		}
	}
	return TravelDate{}, fmt.Errorf("unrecognised travel date %q", s)
}

// UnmarshalJSON accepts a string date or null (zero value).
func (d *TravelDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = TravelDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("travel date must be a string: %w", err)
	}
	if s == "" {
		*d = TravelDate{}
		return nil
	}
	parsed, err := ParseTravelDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON writes RFC 3339, or null for the zero date.
func (d TravelDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.RFC3339))
}
