// Package job defines the unit of work the worker fleet processes: one
// image fetch-and-resize attempt, decoded from a message-bus payload.
package job

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Job is immutable once constructed and lives only for the duration of one
// processing attempt.
type Job struct {
	URL        string
	Identifier string
}

// rawMessage is the wire shape polled from the bus: a UTF-8 JSON object
// with two required string fields. Unknown fields are ignored.
type rawMessage struct {
	URL  string `json:"url"`
	UUID string `json:"uuid"`
}

// Parse decodes one bus message into a Job. Malformed messages (invalid
// JSON, missing fields, non-UUID identifier, non-HTTP(S) URL) return an
// error; the caller discards the message and counts it as consumed.
func Parse(raw []byte) (Job, error) {
	var m rawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Job{}, fmt.Errorf("malformed message: %w", err)
	}
	if m.URL == "" || m.UUID == "" {
		return Job{}, fmt.Errorf("malformed message: url and uuid are required")
	}
	if _, err := uuid.Parse(m.UUID); err != nil {
		return Job{}, fmt.Errorf("malformed message: uuid %q is not a valid UUID: %w", m.UUID, err)
	}
	u, err := url.Parse(m.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Job{}, fmt.Errorf("malformed message: url %q is not an absolute http(s) URL", m.URL)
	}
	return Job{URL: m.URL, Identifier: m.UUID}, nil
}

// Origin returns the registrable host portion of the job's URL — the
// shard key used for rate limits and statistics. Malformed URLs (which
// should never reach here, since Parse already validated the job) yield
// an empty origin.
func (j Job) Origin() string {
	return Origin(j.URL)
}

// Origin derives the host component from a fully-qualified URL.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
