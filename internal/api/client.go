// Package api is the client-side boundary to the marketplace backend.
// The player only needs one call from it: logging a listening segment
// against a track. Authentication is a capability discovered from the
// configured token, never negotiated.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lmeynard/chorus/internal/listening"
)

const userAgent = "chorus-player/1.0 (https://github.com/lmeynard/chorus)"

// Client talks to the marketplace REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the given base URL. An empty token means the
// user is not signed in.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsAuthenticated reports whether a user token is present.
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// segmentPayload is the wire shape of a listening segment report.
type segmentPayload struct {
	StartTimestampUTC string `json:"segment_start_timestamp_utc"`
	DurationMS        int64  `json:"segment_duration_ms"`
}

// LogSegment POSTs one listening segment to the per-track endpoint.
// Unauthenticated clients short-circuit locally without error: analytics
// is a best-effort concern and must never surface as a failure.
func (c *Client) LogSegment(ctx context.Context, seg listening.Segment) error {
	if !c.IsAuthenticated() {
		return nil
	}

	payload := segmentPayload{
		StartTimestampUTC: seg.Start.UTC().Format(time.RFC3339),
		DurationMS:        seg.Duration.Milliseconds(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}

	reqURL := fmt.Sprintf("%s/api/tracks/%d/listening-segments", c.baseURL, seg.TrackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("log segment: unexpected status %s", resp.Status)
	}
	return nil
}

// Verify Client implements the segment reporter at compile time.
var _ listening.Reporter = (*Client)(nil)
