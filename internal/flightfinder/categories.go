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

package flightfinder

import (
	"sort"
	"strings"
)

// sizeCategories maps aircraft size labels to the catalog's numeric category
// ids. Keys are normalised with normaliseSize.
var sizeCategories = map[string]int{
	"piston":           1,
	"turboprop":        2,
	"very_light":       3,
	"very_light_jet":   3,
	"light":            4,
	"light_jet":        4,
	"midsize":          5,
	"mid":              5,
	"midsize_jet":      5,
	"super_midsize":    6,
	"super_mid":        6,
	"heavy":            7,
	"large":            7,
	"heavy_jet":        7,
	"ultra_long_range": 8,
	"vip_airliner":     9,
}

func normaliseSize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// Categories resolves size labels to catalog category ids. Labels with no
// mapping (including "unknown") are dropped; the result is sorted and has no
// duplicates. An empty result means the search is not filtered by size.
func Categories(labels []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, label := range labels {
		id, ok := sizeCategories[normaliseSize(label)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
