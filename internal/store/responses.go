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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ameyabhat/jetfinder-be/internal/models"
)

const responseColumns = `id, user_id, email_id, vendor_emails, request_body,
	response_subject, response_body, email_analysis, radius, plane_size,
	num_passengers, created_at, updated_at`

// Write inserts a vendor response. A response already stored for the same
// user and email is left untouched and returned instead, so a redelivered
// message cannot overwrite a record that has since been recomputed.
func (s *Store) Write(ctx context.Context, rec *models.VendorResponseRecord) (*models.VendorResponseRecord, error) {
	analysis, err := encodeAnalysis(rec.Analysis)
	if err != nil {
		return nil, err
	}
	emails := rec.VendorEmails
	if emails == nil {
		emails = []string{}
	}
	planeSize := rec.PlaneSize
	if planeSize == "" {
		planeSize = models.UnknownAircraftSize
	}

	var out *models.VendorResponseRecord
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO vendor_responses
				(id, user_id, email_id, vendor_emails, request_body, response_subject,
				 response_body, email_analysis, radius, plane_size, num_passengers)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (user_id, email_id) DO NOTHING
			RETURNING `+responseColumns,
			uuid.New(), rec.UserID, rec.EmailID, emails, rec.RequestBody, rec.Subject,
			rec.Body, analysis, rec.Radius, planeSize, rec.NumPassengers,
		)
		var err error
		out, err = scanResponse(row)
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		slog.Info("vendor response already stored, keeping it",
			"user_id", rec.UserID,
			"email_id", rec.EmailID,
		)
		row = tx.QueryRow(ctx, `
			SELECT `+responseColumns+`
			FROM vendor_responses
			WHERE user_id = $1 AND email_id = $2
		`, rec.UserID, rec.EmailID)
		out, err = scanResponse(row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("write vendor response: %w", err)
	}
	return out, nil
}

// Get returns the response for a user and email, or nil if there is none.
func (s *Store) Get(ctx context.Context, userID, emailID string) (*models.VendorResponseRecord, error) {
	var out *models.VendorResponseRecord
	err := s.withReadTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+responseColumns+`
			FROM vendor_responses
			WHERE user_id = $1 AND email_id = $2
		`, userID, emailID)
		var err error
		out, err = scanResponse(row)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor response: %w", err)
	}
	return out, nil
}

// Update applies a coalescing update: nil fields keep the stored value. It
// returns nil if the response does not exist.
func (s *Store) Update(ctx context.Context, userID, emailID string, upd models.VendorResponseUpdate) (*models.VendorResponseRecord, error) {
	var analysis any
	if upd.Analysis != nil {
		data, err := encodeAnalysis(upd.Analysis)
		if err != nil {
			return nil, err
		}
		analysis = data
	}

	var out *models.VendorResponseRecord
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE vendor_responses SET
				vendor_emails    = COALESCE($3, vendor_emails),
				request_body     = COALESCE($4, request_body),
				response_subject = COALESCE($5, response_subject),
				response_body    = COALESCE($6, response_body),
				email_analysis   = COALESCE($7::jsonb, email_analysis),
				radius           = COALESCE($8, radius),
				plane_size       = COALESCE($9, plane_size),
				num_passengers   = COALESCE($10, num_passengers),
				updated_at       = NOW()
			WHERE user_id = $1 AND email_id = $2
			RETURNING `+responseColumns,
			userID, emailID, upd.VendorEmails, upd.RequestBody, upd.Subject,
			upd.Body, analysis, upd.Radius, upd.PlaneSize, upd.NumPassengers,
		)
		var err error
		out, err = scanResponse(row)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update vendor response: %w", err)
	}
	return out, nil
}

// List returns one page of a user's responses ordered by creation time. Zero
// results and out-of-range pages yield an empty page, not an error.
func (s *Store) List(ctx context.Context, q ListQuery) (*models.VendorResponsePage, error) {
	q = q.normalised()

	page := &models.VendorResponsePage{
		Responses: []models.VendorResponseRecord{},
		Page:      q.Page,
	}

	err := s.withReadTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM vendor_responses WHERE user_id = $1`, q.UserID,
		).Scan(&page.Total); err != nil {
			return fmt.Errorf("count: %w", err)
		}

		offset, totalPages, inRange := pageWindow(page.Total, q.Page, q.PageSize)
		page.TotalPages = totalPages
		if !inRange {
			return nil
		}

		// The direction is one of two literals, never caller text.
		order := "DESC"
		if q.SortOrder == "asc" {
			order = "ASC"
		}

		rows, err := tx.Query(ctx, `
			SELECT `+responseColumns+`
			FROM vendor_responses
			WHERE user_id = $1
			ORDER BY created_at `+order+`
			LIMIT $2 OFFSET $3
		`, q.UserID, q.PageSize, offset)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanResponse(rows)
			if err != nil {
				return err
			}
			page.Responses = append(page.Responses, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list vendor responses: %w", err)
	}
	return page, nil
}

func encodeAnalysis(a *models.CharterAnalysis) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return data, nil
}

func scanResponse(row pgx.Row) (*models.VendorResponseRecord, error) {
	var (
		rec      models.VendorResponseRecord
		id       uuid.UUID
		analysis []byte
	)
	err := row.Scan(
		&id, &rec.UserID, &rec.EmailID, &rec.VendorEmails, &rec.RequestBody,
		&rec.Subject, &rec.Body, &analysis, &rec.Radius, &rec.PlaneSize,
		&rec.NumPassengers, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ID = id.String()

	if len(analysis) > 0 {
		var a models.CharterAnalysis
		if err := json.Unmarshal(analysis, &a); err != nil {
			// Left nil so callers treat it as missing.
			slog.Warn("stored analysis is malformed",
				"user_id", rec.UserID,
				"email_id", rec.EmailID,
				"error", err,
			)
		} else {
			rec.Analysis = &a
		}
	}
	return &rec, nil
}
