// Package backend holds the clients for the hosted model services: an
// OpenAI-compatible chat completions endpoint, the Gemini API and
// Hugging Face inference endpoints.
//
// Calls are made exactly once per request. A failed call surfaces as an
// *Error carrying the upstream status and a truncated response body;
// callers decide whether to retry by issuing a new request.
package backend

import (
	"fmt"
	"net/http"
	"time"
)

// Message is a single chat message in OpenAI wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 512

// Error is a failed upstream call. Status is the upstream HTTP status,
// or 0 when the request never completed.
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newStatusError builds an *Error from a non-2xx upstream response.
func newStatusError(provider string, status int, body []byte) *Error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &Error{Provider: provider, Status: status, Body: string(body)}
}

// newTransportError builds an *Error for a request that never produced
// a response.
func newTransportError(provider string, err error) *Error {
	return &Error{Provider: provider, Err: err}
}

// newHTTPClient returns the http.Client used for backend calls. The
// generous timeout covers slow model inference; per-request deadlines
// come from the caller's context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Minute,
	}
}
