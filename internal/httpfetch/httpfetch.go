// Package httpfetch is the production net/http implementation of
// transport.Session.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openverse/image-worker/internal/transport"
)

// Session issues GETs via a shared *http.Client with a fixed per-request
// timeout, matching the teacher's pattern of giving every outbound call
// its own deadline rather than relying solely on the caller's context.
type Session struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a Session whose requests are bounded by timeout.
func New(timeout time.Duration) *Session {
	return &Session{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Get issues an HTTP GET for url, bounded by both ctx and the session's
// configured timeout, whichever elapses first.
func (s *Session) Get(ctx context.Context, url string) (transport.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: building request for %s: %w", url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: reading body for %s: %w", url, err)
	}

	return response{status: resp.StatusCode, body: body}, nil
}

type response struct {
	status int
	body   []byte
}

func (r response) Status() int           { return r.status }
func (r response) Read() ([]byte, error) { return r.body, nil }
