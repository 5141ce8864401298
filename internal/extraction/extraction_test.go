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

package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ameyabhat/jetfinder-be/internal/config"
	"github.com/ameyabhat/jetfinder-be/internal/models"
)

const sampleReply = `{
  "is_charter_request": true,
  "user_info": {"name": "Dana", "email": "dana@example.com"},
  "flights": [
    {"origin": "TEB", "destination": "PBI", "travel_date": "2026-03-01T09:00:00", "passengers": 4, "aircraft_size": "light"},
    {"origin": "PBI", "destination": "TEB", "travel_date": "2026-03-05T17:00:00", "passengers": 4}
  ]
}`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		legs    int
		wantErr bool
	}{
		{name: "plain", in: sampleReply, legs: 2},
		{name: "fenced", in: "```json\n" + sampleReply + "\n```", legs: 2},
		{name: "not charter", in: `{"is_charter_request": false}`, legs: 0},
		{name: "empty", in: "  ", wantErr: true},
		{name: "garbage", in: "I think this is a charter request", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(got.Flights) != tt.legs {
				t.Errorf("legs = %d, want %d", len(got.Flights), tt.legs)
			}
			if got.Flights == nil {
				t.Error("Flights should be non-nil")
			}
		})
	}
}

func TestParse_DefaultsSize(t *testing.T) {
	got, err := Parse(sampleReply)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Flights[1].AircraftSize != models.UnknownAircraftSize {
		t.Errorf("second leg size = %q, want unknown", got.Flights[1].AircraftSize)
	}
	if got.UserInfo == nil || got.UserInfo.Name == nil || *got.UserInfo.Name != "Dana" {
		t.Errorf("user info not decoded: %+v", got.UserInfo)
	}
}

// recorder captures the last request body sent to a fake provider.
type recorder struct {
	mu   sync.Mutex
	path string
	body map[string]any
}

func (r *recorder) capture(t *testing.T, req *http.Request) {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = req.URL.Path
	r.body = map[string]any{}
	if err := json.Unmarshal(raw, &r.body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
}

func TestOpenAI_Analyze(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.capture(t, r)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": sampleReply},
			}},
		})
	}))
	defer srv.Close()

	a, err := New(config.ExtractionConfig{
		Provider:     config.ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
		BaseURL:      srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := a.Analyze(context.Background(), "Need a jet TEB to PBI")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.IsCharterRequest || len(got.Flights) != 2 {
		t.Errorf("unexpected analysis: %+v", got)
	}

	if !strings.HasSuffix(rec.path, "/chat/completions") {
		t.Errorf("path = %q", rec.path)
	}
	if rec.body["model"] != DefaultOpenAIModel {
		t.Errorf("model = %v, want %s", rec.body["model"], DefaultOpenAIModel)
	}
	format, _ := rec.body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", rec.body["response_format"])
	}
}

func TestAnthropic_Analyze(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.capture(t, r)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": "```json\n" + sampleReply + "\n```"}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	a, err := New(config.ExtractionConfig{
		Provider:        config.ProviderAnthropic,
		Model:           "claude-test",
		AnthropicAPIKey: "ak-test",
		BaseURL:         srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := a.Analyze(context.Background(), "Need a jet TEB to PBI")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(got.Flights) != 2 || got.Flights[0].Origin != "TEB" {
		t.Errorf("unexpected analysis: %+v", got)
	}

	if !strings.HasSuffix(rec.path, "/v1/messages") {
		t.Errorf("path = %q", rec.path)
	}
	if rec.body["model"] != "claude-test" {
		t.Errorf("model = %v, want claude-test", rec.body["model"])
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(config.ExtractionConfig{Provider: "llama"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
