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
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var vendorIDPattern = regexp.MustCompile(`vendor_details\((\d+)\)`)

// listing is the DataTables response of the results endpoint.
type listing struct {
	RecordsFiltered int               `json:"recordsFiltered"`
	Data            []json.RawMessage `json:"data"`
}

// rowText flattens one result row. Rows are either a single HTML string or an
// array of cells.
func rowText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var cells []any
	if err := json.Unmarshal(raw, &cells); err == nil {
		var b strings.Builder
		for _, c := range cells {
			fmt.Fprint(&b, c, " ")
		}
		return b.String()
	}
	return string(raw)
}

// VendorIDs extracts the distinct vendor ids referenced by the result rows,
// in order of first appearance. Rows without an id are skipped.
func VendorIDs(rows []json.RawMessage) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, row := range rows {
		m := vendorIDPattern.FindStringSubmatch(rowText(row))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// ExtractMailto returns the address of the first non-empty mailto: link in an
// HTML fragment, or "" when there is none.
func ExtractMailto(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var found string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if addr := mailtoAddress(attr.Val); addr != "" {
					found = addr
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func mailtoAddress(href string) string {
	href = strings.TrimSpace(href)
	if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
		return ""
	}
	addr := href[len("mailto:"):]
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	if unescaped, err := url.PathUnescape(addr); err == nil {
		addr = unescaped
	}
	return strings.TrimSpace(addr)
}
