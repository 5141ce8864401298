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

// Package models defines the data structures shared across the JetFinder backend.
package models

import "encoding/json"

// InboundMessage is a charter email delivered by the broker.
//
// This struct's JSON serialisation MUST match the payload written by the mail
// ingestion service onto the inbound queue.
type InboundMessage struct {
	EmailID   string `json:"email_id"`
	Content   string `json:"content"`
	ThreadID  string `json:"thread_id"`
	UserEmail string `json:"user_email"`
}

// OutreachMessage is published to the outreach queue once vendors are found and
// the quote-request email is composed.
type OutreachMessage struct {
	VendorEmails []string `json:"vendor_emails"`
	EmailID      string   `json:"email_id"`
	ThreadID     string   `json:"thread_id"`
	UserEmail    string   `json:"user_email"`
	Body         string   `json:"body"`
	Subject      string   `json:"subject"`
}

// ErrorType classifies a pipeline failure.
type ErrorType string

const (
	FlightPlanError     ErrorType = "FlightPlanError"
	NoVendorEmailsFound ErrorType = "NoVendorEmailsFound"
	UnknownError        ErrorType = "UnknownError"
)

// ErrorEnvelope is published to the error and manual-intervention queues.
// Message carries the original inbound payload byte-for-byte so a human (or the
// replay tool) can resubmit it unchanged.
type ErrorEnvelope struct {
	ErrorType  ErrorType       `json:"error_type"`
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error,omitempty"`
	Stacktrace string          `json:"stacktrace,omitempty"`
}
