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

import "time"

// VendorResponseRecord is the persisted outcome of processing one email.
type VendorResponseRecord struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	EmailID       string           `json:"email_id"`
	VendorEmails  []string         `json:"vendor_emails"`
	RequestBody   string           `json:"request_body"`
	Subject       string           `json:"response_subject"`
	Body          string           `json:"response_body"`
	Analysis      *CharterAnalysis `json:"email_analysis"`
	Radius        int              `json:"radius"`
	PlaneSize     string           `json:"plane_size"`
	NumPassengers *int             `json:"num_passengers"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// VendorResponseUpdate is a coalescing partial update: a nil field keeps the
// stored value.
type VendorResponseUpdate struct {
	VendorEmails  []string
	RequestBody   *string
	Subject       *string
	Body          *string
	Analysis      *CharterAnalysis
	Radius        *int
	PlaneSize     *string
	NumPassengers *int
}

// FlightUpdateRequest asks for a vendor search to be recomputed with optional
// overrides.
type FlightUpdateRequest struct {
	UserID             string  `json:"user_id"`
	MessageID          string  `json:"message_id"`
	PlaneSize          *string `json:"plane_size,omitempty"`
	SearchRadius       *int    `json:"search_radius,omitempty"`
	NumberOfPassengers *int    `json:"number_of_passengers,omitempty"`
}

// VendorResponsePage is one page of a user's vendor responses.
type VendorResponsePage struct {
	Responses  []VendorResponseRecord `json:"responses"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"total_pages"`
}
