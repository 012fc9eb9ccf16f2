// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/tomtom215/moodscore/internal/breaker"
	"github.com/tomtom215/moodscore/internal/models"
)

const (
	maxErrorBodySize = 1024

	// MaxSearchLimit is the largest page the search endpoint accepts.
	MaxSearchLimit = 50
)

// SpotifyConfig configures SpotifyClient.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	APIURL       string
	TokenURL     string
	Timeout      time.Duration
	MaxRetries   int
}

// SpotifyClient talks to the Spotify Web API. Access tokens are minted from
// the refresh token on demand and cached until they expire.
type SpotifyClient struct {
	baseURL     string
	httpClient  *http.Client
	tokens      oauth2.TokenSource
	maxRetries  int
	baseBackoff time.Duration
	cb          *breaker.Breaker
	now         func() time.Time
}

var _ Client = (*SpotifyClient)(nil)

// NewSpotifyClient creates a client. All three credentials are required.
func NewSpotifyClient(cfg SpotifyConfig) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: client id, client secret and refresh token are required", ErrUnauthorized)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	base := &http.Client{Timeout: cfg.Timeout}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.ReuseTokenSource(nil, oauthCfg.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))

	httpClient := oauth2.NewClient(tokenCtx, ts)
	httpClient.Timeout = cfg.Timeout

	settings := breaker.DefaultSettings()
	settings.Timeout = 30 * time.Second
	settings.Expected = []error{ErrNoActiveDevice}

	return &SpotifyClient{
		baseURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient:  httpClient,
		tokens:      ts,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: defaultBaseBackoff,
		cb:          breaker.New("spotify", settings),
		now:         time.Now,
	}, nil
}

// Wire shapes for /me/player/currently-playing.
type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	DurationMs int64           `json:"duration_ms"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
}

type currentlyPlayingResponse struct {
	IsPlaying  bool          `json:"is_playing"`
	ProgressMs int64         `json:"progress_ms"`
	Item       *spotifyTrack `json:"item"`
}

// CurrentlyPlaying implements Client. Ads, podcasts without an item and
// local files without an ID are reported as nothing playing.
func (c *SpotifyClient) CurrentlyPlaying(ctx context.Context) (*models.CurrentTrack, error) {
	return breaker.Execute(c.cb, func() (*models.CurrentTrack, error) {
		return c.currentlyPlaying(ctx)
	})
}

func (c *SpotifyClient) currentlyPlaying(ctx context.Context) (*models.CurrentTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me/player/currently-playing", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("spotify currently-playing: %w", unwrapOAuthError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, statusError("currently-playing", resp)
	}

	var body currentlyPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode currently-playing: %w", err)
	}
	if body.Item == nil || body.Item.ID == "" {
		return nil, nil
	}

	track := &models.CurrentTrack{
		ID:         body.Item.ID,
		Name:       body.Item.Name,
		Album:      body.Item.Album.Name,
		DurationMs: body.Item.DurationMs,
		ProgressMs: body.ProgressMs,
		IsPlaying:  body.IsPlaying,
		ObservedAt: c.now(),
	}
	for _, a := range body.Item.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	return track, nil
}

// Play implements Transport.
func (c *SpotifyClient) Play(ctx context.Context) error {
	return c.transport(ctx, http.MethodPut, "/me/player/play")
}

// Pause implements Transport.
func (c *SpotifyClient) Pause(ctx context.Context) error {
	return c.transport(ctx, http.MethodPut, "/me/player/pause")
}

// Next implements Transport.
func (c *SpotifyClient) Next(ctx context.Context) error {
	return c.transport(ctx, http.MethodPost, "/me/player/next")
}

// Previous implements Transport.
func (c *SpotifyClient) Previous(ctx context.Context) error {
	return c.transport(ctx, http.MethodPost, "/me/player/previous")
}

// PlayTracks implements Catalog. It replaces the device queue with uris.
func (c *SpotifyClient) PlayTracks(ctx context.Context, uris []string) error {
	if len(uris) == 0 {
		return errors.New("no track URIs to play")
	}
	body, err := json.Marshal(struct {
		URIs []string `json:"uris"`
	}{URIs: uris})
	if err != nil {
		return fmt.Errorf("encode play request: %w", err)
	}
	return c.transportWithBody(ctx, http.MethodPut, "/me/player/play", body)
}

func (c *SpotifyClient) transport(ctx context.Context, method, path string) error {
	return c.transportWithBody(ctx, method, path, nil)
}

func (c *SpotifyClient) transportWithBody(ctx context.Context, method, path string, body []byte) error {
	_, err := breaker.Execute(c.cb, func() (struct{}, error) {
		var reqBody io.Reader = http.NoBody
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return struct{}{}, fmt.Errorf("create request failed: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.doRequestWithRetry(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("spotify %s: %w", path, unwrapOAuthError(err))
		}
		defer func() { _ = resp.Body.Close() }()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
			return struct{}{}, nil
		case http.StatusNotFound:
			return struct{}{}, ErrNoActiveDevice
		default:
			return struct{}{}, statusError(path, resp)
		}
	})
	return err
}

type searchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SearchTracks implements Catalog. limit is clamped to [1, MaxSearchLimit].
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]models.TrackSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}
	limit = max(1, min(limit, MaxSearchLimit))

	return breaker.Execute(c.cb, func() ([]models.TrackSummary, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("type", "track")
		params.Set("limit", strconv.Itoa(limit))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request failed: %w", err)
		}
		resp, err := c.doRequestWithRetry(req)
		if err != nil {
			return nil, fmt.Errorf("spotify search: %w", unwrapOAuthError(err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError("search", resp)
		}
		var body searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode search: %w", err)
		}

		out := make([]models.TrackSummary, 0, len(body.Tracks.Items))
		for _, item := range body.Tracks.Items {
			if item.URI == "" {
				continue
			}
			summary := models.TrackSummary{
				ID:         item.ID,
				URI:        item.URI,
				Name:       item.Name,
				Album:      item.Album.Name,
				DurationMs: item.DurationMs,
			}
			for _, a := range item.Artists {
				summary.Artists = append(summary.Artists, a.Name)
			}
			out = append(out, summary)
		}
		return out, nil
	})
}

// CheckAuth implements Client. A cached token that has not expired counts
// as authenticated without a round trip.
func (c *SpotifyClient) CheckAuth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return unwrapOAuthError(err)
	}
	if !tok.Valid() {
		return fmt.Errorf("%w: token endpoint returned an unusable token", ErrUnauthorized)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	msg := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d: %s", ErrUnauthorized, op, resp.StatusCode, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, op)
	default:
		return fmt.Errorf("spotify %s returned status %d: %s", op, resp.StatusCode, msg)
	}
}

// unwrapOAuthError maps a rejected refresh token to ErrUnauthorized.
func unwrapOAuthError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: token refresh: %s", ErrUnauthorized, rerr.Error())
	}
	return err
}
