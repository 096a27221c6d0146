// Package transport defines the HTTP capability the rate limiter and
// image processor depend on. Production code is backed by net/http
// (see internal/httpfetch); tests inject fakes that satisfy the same
// interfaces, including one that counts requests per rolling second to
// check the rate limiter.
package transport

import "context"

// Response is the result of one GET. Read may be called at most once.
type Response interface {
	Status() int
	Read() ([]byte, error)
}

// Session issues HTTP GETs. Implementations must be safe for concurrent
// use by multiple goroutines.
type Session interface {
	Get(ctx context.Context, url string) (Response, error)
}
