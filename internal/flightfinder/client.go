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

// Package flightfinder is the vendor directory client. It drives the
// catalog's stateful search protocol: submit the search parameters against the
// session, read the first page of results, then resolve each distinct vendor to
// a contact address.
package flightfinder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
)

const (
	// SessionCookie is the catalog's session cookie name.
	SessionCookie = "ci_session"

	// PageSize is the number of result rows read per search. Later pages are
	// never fetched.
	PageSize = 30

	searchPath  = "/search-results"
	listingPath = "/search-results-ajax"
	detailsPath = "/pages_view/vendor_details"
)

// Client talks to the vendor catalog over a single session. The catalog binds
// search parameters to the session token server-side, so Search calls are
// serialised; run one Client per worker for parallelism.
type Client struct {
	mu    sync.Mutex
	http  *resty.Client
	token string
}

// NewClient creates a catalog client for baseURL authenticated by the given
// session token.
func NewClient(baseURL, sessionToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		// The session cookie is managed explicitly per request.
		SetCookieJar(nil)

	return &Client{
		http:  rc,
		token: sessionToken,
	}
}

// Token returns the current session token, which changes when the catalog
// rotates the session cookie.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Search returns the distinct contact emails of vendors matching the origin
// airport code, passenger count (nil for any), aircraft sizes and radius in
// miles. Unrecognised sizes are ignored. Transport and HTTP errors fail the
// call; there are no retries at this level.
func (c *Client) Search(ctx context.Context, origin string, passengers *int, sizes []string, radius int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	categories := Categories(sizes)

	slog.Info("searching vendor catalog",
		"origin", origin,
		"passengers", paxValue(passengers),
		"radius", radius,
		"categories", categories,
	)

	if err := c.submitSearch(ctx, origin, passengers, categories, radius); err != nil {
		return nil, err
	}

	rows, err := c.firstPage(ctx)
	if err != nil {
		return nil, err
	}

	ids := VendorIDs(rows)

	seen := make(map[string]bool, len(ids))
	emails := make([]string, 0, len(ids))
	for _, id := range ids {
		page, err := c.vendorDetails(ctx, id)
		if err != nil {
			return nil, err
		}

		email := ExtractMailto(page)
		if email == "" {
			slog.Debug("vendor has no contact address", "vendor_id", id)
			continue
		}
		key := strings.ToLower(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		emails = append(emails, email)
	}

	sort.Strings(emails)

	slog.Info("vendor catalog search complete",
		"origin", origin,
		"radius", radius,
		"rows", len(rows),
		"vendors", len(ids),
		"contacts", len(emails),
	)

	return emails, nil
}

// submitSearch stores the search parameters in the server-side session. The
// response body is not used.
func (c *Client) submitSearch(ctx context.Context, origin string, passengers *int, categories []int, radius int) error {
	form := url.Values{}
	form.Set("capability", "PASSENGER")
	form.Set("searchby", "AirportCode")
	form.Set("code", origin)
	form.Set("radius", strconv.Itoa(radius))
	form.Set("pax", paxValue(passengers))
	for _, id := range categories {
		form.Add("category[]", strconv.Itoa(id))
	}
	form.Set("rdtype", "Category")
	form.Set("submit-user", "search")

	if _, err := c.post(ctx, searchPath, form); err != nil {
		return errors.Wrap(err, "submit search")
	}
	return nil
}

func (c *Client) firstPage(ctx context.Context) ([]json.RawMessage, error) {
	form := url.Values{}
	form.Set("start", "0")
	form.Set("length", strconv.Itoa(PageSize))
	form.Set("order[0][column]", "0")
	form.Set("order[0][dir]", "asc")

	resp, err := c.post(ctx, listingPath, form)
	if err != nil {
		return nil, errors.Wrap(err, "list results")
	}

	var result listing
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, errors.Wrap(err, "decode results")
	}

	if result.RecordsFiltered > PageSize {
		slog.Warn("vendor search truncated to first page",
			"total", result.RecordsFiltered,
			"page_size", PageSize,
		)
	}

	return result.Data, nil
}

func (c *Client) vendorDetails(ctx context.Context, id int) (string, error) {
	form := url.Values{}
	form.Set("id", strconv.Itoa(id))

	resp, err := c.post(ctx, detailsPath, form)
	if err != nil {
		return "", errors.Wrapf(err, "vendor details %d", id)
	}
	return resp.String(), nil
}

// post sends a form-encoded POST carrying the session cookie. Callers hold mu.
func (c *Client) post(ctx context.Context, path string, form url.Values) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form)
	if c.token != "" {
		req.SetCookie(&http.Cookie{Name: SessionCookie, Value: c.token})
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("POST %s: status %d", path, resp.StatusCode())
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie && ck.Value != "" && ck.Value != c.token {
			slog.Debug("catalog session rotated")
			c.token = ck.Value
		}
	}

	return resp, nil
}

func paxValue(passengers *int) string {
	if passengers == nil {
		return "Any"
	}
	return strconv.Itoa(*passengers)
}
