// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/moodscore/internal/breaker"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/sampler"
)

// ErrNoFace is returned when the classifier found no face in the frame.
var ErrNoFace = errors.New("no face detected")

// classifyResponse is the classifier service reply.
type classifyResponse struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	FaceDetected    *bool              `json:"face_detected,omitempty"`
}

// ClassifierClient implements sampler.Classifier against an HTTP service.
type ClassifierClient struct {
	url        string
	httpClient *http.Client
	cb         *breaker.Breaker
}

var _ sampler.Classifier = (*ClassifierClient)(nil)

// NewClassifierClient creates a ClassifierClient posting frames to url.
func NewClassifierClient(url string, timeout time.Duration) *ClassifierClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	settings := breaker.DefaultSettings()
	settings.Expected = []error{ErrNoFace, ErrNoFrame, models.ErrUnknownCategory}
	return &ClassifierClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		cb:         breaker.New("classifier", settings),
	}
}

// Classify implements sampler.Classifier.
func (c *ClassifierClient) Classify(ctx context.Context, frame sampler.Frame) (models.Category, error) {
	return breaker.Execute(c.cb, func() (models.Category, error) {
		return c.classify(ctx, frame)
	})
}

func (c *ClassifierClient) classify(ctx context.Context, frame sampler.Frame) (models.Category, error) {
	if len(frame.Data) == 0 {
		return "", ErrNoFrame
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(frame.Data))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	contentType := frame.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", ErrNoFace
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	var out classifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if out.FaceDetected != nil && !*out.FaceDetected {
		return "", ErrNoFace
	}

	cat, err := models.ParseCategory(out.DominantEmotion)
	if err != nil {
		return "", err
	}
	if !cat.IsEmotion() {
		return "", fmt.Errorf("%w: %q is not an emotion", models.ErrUnknownCategory, out.DominantEmotion)
	}
	return cat, nil
}
