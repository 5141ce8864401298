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

// Package composer formats the quote-request email sent to vendors.
package composer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ameyabhat/jetfinder-be/internal/models"
)

const dateLayout = "01/02/2006"

// Email is a composed subject and body.
type Email struct {
	Subject string
	Body    string
}

// Compose builds the quote-request email for a validated analysis.
func Compose(analysis *models.CharterAnalysis) (Email, error) {
	if analysis == nil || len(analysis.Flights) == 0 {
		return Email{}, fmt.Errorf("compose: analysis has no flights")
	}

	subjects := make([]string, 0, len(analysis.Flights))
	for _, leg := range analysis.Flights {
		subjects = append(subjects, Subject(leg))
	}

	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("We have a client looking for a quote on the following trip:\n\n")
	for i, leg := range analysis.Flights {
		fmt.Fprintf(&b, "Leg %d: %s to %s\n", i+1, leg.Origin, leg.Destination)
		fmt.Fprintf(&b, "  Date: %s\n", formatDate(leg.TravelDate))
		fmt.Fprintf(&b, "  Passengers: %s\n", formatPassengers(leg.Passengers))
		fmt.Fprintf(&b, "  Aircraft: %s\n", sizeLabel(leg.AircraftSize))
	}
	b.WriteString("\nPlease reply with availability and pricing.\n\nThank you.")

	return Email{
		Subject: strings.Join(subjects, "; "),
		Body:    b.String(),
	}, nil
}

// Subject formats one leg as "<origin> - <destination> | <MM/DD/YYYY> | <size>".
func Subject(leg models.FlightLeg) string {
	return fmt.Sprintf("%s - %s | %s | %s",
		leg.Origin, leg.Destination, formatDate(leg.TravelDate), sizeLabel(leg.AircraftSize))
}

func formatDate(d models.TravelDate) string {
	if d.IsZero() {
		return "TBD"
	}
	return d.Format(dateLayout)
}

func formatPassengers(n *int) string {
	if n == nil {
		return "not specified"
	}
	return strconv.Itoa(*n)
}

func sizeLabel(size string) string {
	if strings.TrimSpace(size) == "" {
		return models.UnknownAircraftSize
	}
	return size
}
