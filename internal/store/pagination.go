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

import "strings"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery selects one page of a user's vendor responses. Page is 1-based.
type ListQuery struct {
	UserID    string
	Page      int
	PageSize  int
	SortOrder string // "asc" or "desc"
}

// normalised clamps the page size and canonicalises the sort order. Page is
// left as given so out-of-range requests can be reported as empty.
func (q ListQuery) normalised() ListQuery {
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if strings.EqualFold(strings.TrimSpace(q.SortOrder), "asc") {
		q.SortOrder = "asc"
	} else {
		q.SortOrder = "desc"
	}
	return q
}

// pageWindow computes the page count for total rows and the row offset of
// page. inRange is false when page falls outside 1..totalPages.
func pageWindow(total, page, pageSize int) (offset, totalPages int, inRange bool) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages = (total + pageSize - 1) / pageSize
	if page < 1 || page > totalPages {
		return 0, totalPages, false
	}
	return (page - 1) * pageSize, totalPages, true
}
