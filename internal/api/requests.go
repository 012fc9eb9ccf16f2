// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const maxRequestBodySize = 4 << 10

// ScoresRequest is the query of GET /scores. Zero means every record.
type ScoresRequest struct {
	Limit int `validate:"gte=0,lte=10000"`
}

// ApplyEventRequest is the body of POST /scores/{trackID}/events.
type ApplyEventRequest struct {
	TrackID  string `json:"-" validate:"required,max=256"`
	Category string `json:"category" validate:"required,category"`
}

// MoodPlayRequest is the body of POST /playback/mood. An empty Mood falls
// back to the current emotion reading.
type MoodPlayRequest struct {
	Mood    string `json:"mood" validate:"omitempty,max=64"`
	Keyword string `json:"keyword" validate:"omitempty,max=128"`
	Count   int    `json:"count" validate:"gte=0,lte=20"`
}

// UpdatesRequest is the query of GET /updates.
type UpdatesRequest struct {
	Timeout time.Duration `validate:"gte=0"`
}

// decodeJSONBody reads a bounded JSON body into dst. Unknown fields are
// rejected so typos in "category" surface as 400s.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxRequestBodySize {
		return errors.New("request body too large")
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
