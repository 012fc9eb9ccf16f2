// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tomtom215/moodscore/internal/breaker"
	"github.com/tomtom215/moodscore/internal/sampler"
)

const (
	maxFrameSize     = 10 << 20
	maxErrorBodySize = 1024
)

// ErrNoFrame is returned when the camera bridge has no frame to serve.
var ErrNoFrame = errors.New("no frame available")

// FrameClient implements sampler.FrameSource over an HTTP snapshot endpoint.
type FrameClient struct {
	urlTemplate string
	httpClient  *http.Client
	cb          *breaker.Breaker
}

var _ sampler.FrameSource = (*FrameClient)(nil)

// NewFrameClient creates a FrameClient. urlTemplate may contain "{index}",
// which is replaced by the camera index passed to Open.
func NewFrameClient(urlTemplate string, timeout time.Duration) *FrameClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	settings := breaker.DefaultSettings()
	settings.Timeout = 30 * time.Second
	settings.Expected = []error{ErrNoFrame}
	return &FrameClient{
		urlTemplate: urlTemplate,
		httpClient:  &http.Client{Timeout: timeout},
		cb:          breaker.New("camera", settings),
	}
}

// Open verifies the camera answers with a frame and returns a handle to it.
func (c *FrameClient) Open(ctx context.Context, cameraIndex int) (sampler.Device, error) {
	if c.urlTemplate == "" {
		return nil, errors.New("camera frame URL not configured")
	}
	dev := &httpDevice{
		client: c,
		url:    strings.ReplaceAll(c.urlTemplate, "{index}", strconv.Itoa(cameraIndex)),
	}
	if _, err := dev.fetch(ctx); err != nil {
		return nil, fmt.Errorf("probe camera %d: %w", cameraIndex, err)
	}
	return dev, nil
}

type httpDevice struct {
	client   *FrameClient
	url      string
	released atomic.Bool
}

func (d *httpDevice) ReadFrame(ctx context.Context) (sampler.Frame, error) {
	if d.released.Load() {
		return sampler.Frame{}, io.EOF
	}
	return breaker.Execute(d.client.cb, func() (sampler.Frame, error) {
		return d.fetch(ctx)
	})
}

func (d *httpDevice) Release() error {
	d.released.Store(true)
	return nil
}

func (d *httpDevice) fetch(ctx context.Context) (sampler.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, http.NoBody)
	if err != nil {
		return sampler.Frame{}, fmt.Errorf("create request failed: %w", err)
	}
	resp, err := d.client.httpClient.Do(req)
	if err != nil {
		return sampler.Frame{}, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return sampler.Frame{}, ErrNoFrame
	case resp.StatusCode != http.StatusOK:
		return sampler.Frame{}, fmt.Errorf("snapshot returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize+1))
	if err != nil {
		return sampler.Frame{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return sampler.Frame{}, ErrNoFrame
	}
	if len(data) > maxFrameSize {
		return sampler.Frame{}, fmt.Errorf("snapshot exceeds %d bytes", maxFrameSize)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return sampler.Frame{Data: data, ContentType: contentType, CapturedAt: time.Now()}, nil
}

// readBodyForError reads a bounded prefix of an error response body.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}
