package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sseWriter wraps an http.ResponseWriter for Server-Sent Events.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEWriter creates an SSE writer and sets the streaming headers.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &sseWriter{w: w, flusher: flusher}, nil
}

// writeEvent writes one named event. Multi-line payloads get a
// "data: " prefix per line, as the SSE format requires.
func (w *sseWriter) writeEvent(event, payload string) error {
	if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}
	for _, line := range strings.Split(payload, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// writeJSONEvent writes one named event with a JSON payload.
func (w *sseWriter) writeJSONEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	return w.writeEvent(event, string(data))
}

// WriteDelta sends one streamed response fragment.
func (w *sseWriter) WriteDelta(text string) error {
	return w.writeJSONEvent("delta", map[string]string{"text": text})
}

// WriteDone sends the final event carrying the persisted turn.
func (w *sseWriter) WriteDone(payload any) error {
	return w.writeJSONEvent("done", payload)
}

// WriteError sends an error event.
func (w *sseWriter) WriteError(code, message string) error {
	return w.writeJSONEvent("error", ErrorResponse{Error: code, Message: message})
}
