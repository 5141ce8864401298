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

// Package extraction turns raw email text into a structured charter analysis
// using a hosted language model.
package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"

	"github.com/ameyabhat/jetfinder-be/internal/config"
	"github.com/ameyabhat/jetfinder-be/internal/models"
)

// Analyzer extracts a CharterAnalysis from an email body.
type Analyzer interface {
	Analyze(ctx context.Context, content string) (*models.CharterAnalysis, error)
}

// New builds the Analyzer selected by cfg.Provider.
func New(cfg config.ExtractionConfig) (Analyzer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(cfg), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg), nil
	default:
		return nil, errors.Errorf("unsupported extraction provider %q", cfg.Provider)
	}
}

// Parse decodes a model reply into a CharterAnalysis. Markdown code fences
// around the JSON are tolerated.
func Parse(reply string) (*models.CharterAnalysis, error) {
	body := stripFences(reply)
	if body == "" {
		return nil, errors.New("empty model reply")
	}

	var analysis models.CharterAnalysis
	if err := json.Unmarshal([]byte(body), &analysis); err != nil {
		return nil, errors.Wrap(err, "decode analysis")
	}
	if analysis.Flights == nil {
		analysis.Flights = []models.FlightLeg{}
	}
	return &analysis, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the opening fence.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
