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
	"testing"
	"time"
)

func TestFlightLeg_DefaultsAircraftSize(t *testing.T) {
	var leg FlightLeg
	if err := json.Unmarshal([]byte(`{"origin":"TEB","destination":"PBI","travel_date":"2026-03-01","passengers":4}`), &leg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if leg.AircraftSize != UnknownAircraftSize {
		t.Errorf("AircraftSize = %q, want %q", leg.AircraftSize, UnknownAircraftSize)
	}
	if leg.Passengers == nil || *leg.Passengers != 4 {
		t.Errorf("Passengers = %v, want 4", leg.Passengers)
	}
}

func TestParseTravelDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-03-01", want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2026-03-01T14:30:00", want: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)},
		{in: "2026-03-01T14:30:00Z", want: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)},
		{in: "03/01/2026", want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTravelDate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.Time, tt.want)
			}
		})
	}
}

func TestTravelDate_NullIsZero(t *testing.T) {
	var leg FlightLeg
	if err := json.Unmarshal([]byte(`{"origin":"A","destination":"B","travel_date":null}`), &leg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !leg.TravelDate.IsZero() {
		t.Errorf("expected zero travel date, got %v", leg.TravelDate)
	}

	out, err := json.Marshal(leg.TravelDate)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("marshal zero date = %s, want null", out)
	}
}

func TestCharterAnalysis_CloneIsDeep(t *testing.T) {
	pax := 3
	a := &CharterAnalysis{
		IsCharterRequest: true,
		Flights:          []FlightLeg{{Origin: "TEB", Destination: "PBI", Passengers: &pax, AircraftSize: "light"}},
	}

	c := a.Clone()
	*c.Flights[0].Passengers = 8
	c.Flights[0].AircraftSize = "heavy"

	if *a.Flights[0].Passengers != 3 {
		t.Errorf("original passengers changed to %d", *a.Flights[0].Passengers)
	}
	if a.Flights[0].AircraftSize != "light" {
		t.Errorf("original size changed to %q", a.Flights[0].AircraftSize)
	}
}
