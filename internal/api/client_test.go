package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lmeynard/chorus/internal/listening"
)

func testSegment() listening.Segment {
	return listening.Segment{
		TrackID:  17,
		Start:    time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC),
		Duration: 12500 * time.Millisecond,
	}
}

func TestLogSegment(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token")
	if err := c.LogSegment(context.Background(), testSegment()); err != nil {
		t.Fatalf("LogSegment: %v", err)
	}

	if gotPath != "/api/tracks/17/listening-segments" {
		t.Errorf("path = %q, want per-track segments endpoint", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("authorization = %q, want bearer token", gotAuth)
	}

	var payload struct {
		Start      string `json:"segment_start_timestamp_utc"`
		DurationMS int64  `json:"segment_duration_ms"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload.Start != "2025-06-01T12:30:45Z" {
		t.Errorf("start = %q, want ISO-8601 UTC", payload.Start)
	}
	if payload.DurationMS != 12500 {
		t.Errorf("duration_ms = %d, want 12500", payload.DurationMS)
	}
}

func TestLogSegmentUnauthenticatedShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unauthenticated client must not hit the network")
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if c.IsAuthenticated() {
		t.Error("IsAuthenticated() = true with empty token")
	}
	if err := c.LogSegment(context.Background(), testSegment()); err != nil {
		t.Errorf("LogSegment: %v, want nil for unauthenticated client", err)
	}
}

func TestLogSegmentNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token")
	if err := c.LogSegment(context.Background(), testSegment()); err == nil {
		t.Error("LogSegment returned nil for 403 response")
	}
}

func TestLogSegmentRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the cancel propagates to the handler context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(srv.URL, "secret-token")
	if err := c.LogSegment(ctx, testSegment()); err == nil {
		t.Error("LogSegment returned nil despite cancelled context")
	}
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret-token")
	if err := c.LogSegment(context.Background(), testSegment()); err != nil {
		t.Fatalf("LogSegment: %v", err)
	}
	if gotPath != "/api/tracks/17/listening-segments" {
		t.Errorf("path = %q, want no double slash", gotPath)
	}
}
