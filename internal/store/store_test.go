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

package store

import (
	"io/fs"
	"strings"
	"testing"
)

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name           string
		total, page    int
		size           int
		wantOffset     int
		wantTotalPages int
		wantInRange    bool
	}{
		{name: "no rows", total: 0, page: 1, size: 10, wantTotalPages: 0, wantInRange: false},
		{name: "first page", total: 25, page: 1, size: 10, wantOffset: 0, wantTotalPages: 3, wantInRange: true},
		{name: "last partial page", total: 25, page: 3, size: 10, wantOffset: 20, wantTotalPages: 3, wantInRange: true},
		{name: "past the end", total: 25, page: 4, size: 10, wantTotalPages: 3, wantInRange: false},
		{name: "page zero", total: 25, page: 0, size: 10, wantTotalPages: 3, wantInRange: false},
		{name: "exact fit", total: 20, page: 2, size: 10, wantOffset: 10, wantTotalPages: 2, wantInRange: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, totalPages, inRange := pageWindow(tt.total, tt.page, tt.size)
			if inRange != tt.wantInRange || totalPages != tt.wantTotalPages {
				t.Fatalf("pageWindow = (%d, %d, %v), want totalPages %d inRange %v",
					offset, totalPages, inRange, tt.wantTotalPages, tt.wantInRange)
			}
			if inRange && offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestListQuery_Normalised(t *testing.T) {
	tests := []struct {
		in       ListQuery
		wantSize int
		wantSort string
	}{
		{in: ListQuery{PageSize: 0, SortOrder: ""}, wantSize: DefaultPageSize, wantSort: "desc"},
		{in: ListQuery{PageSize: 500, SortOrder: "ASC"}, wantSize: MaxPageSize, wantSort: "asc"},
		{in: ListQuery{PageSize: 25, SortOrder: "sideways"}, wantSize: 25, wantSort: "desc"},
	}
	for _, tt := range tests {
		got := tt.in.normalised()
		if got.PageSize != tt.wantSize || got.SortOrder != tt.wantSort {
			t.Errorf("normalised(%+v) = %+v", tt.in, got)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}

	for _, f := range files {
		data, err := fs.ReadFile(migrations, f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		body := string(data)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Errorf("%s is missing goose annotations", f)
		}
	}
}
