// Package sse provides Server-Sent Events utilities for streaming responses.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Writer wraps an http.ResponseWriter for SSE streaming. Each write is one
// complete event, flushed immediately so the client sees progress as it
// happens.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets appropriate headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// writeData writes data in SSE format, handling multi-line content.
// SSE spec requires each line of data to be prefixed with "data: ".
func (w *Writer) writeData(event, content string) error {
	if event != "" {
		if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
			return fmt.Errorf("write event name: %w", err)
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}

	// Empty line terminates the event
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// WriteJSON sends payload as one event with a JSON data field.
func (w *Writer) WriteJSON(ctx context.Context, event string, payload any) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return w.writeData(event, string(data))
}

// WriteChunk sends a streaming text chunk as a "chunk" event. The text
// crosses as a JSON object so newlines survive the SSE framing.
func (w *Writer) WriteChunk(ctx context.Context, text string) error {
	return w.WriteJSON(ctx, "chunk", map[string]string{"text": text})
}

// WriteDone sends the terminal "done" event closing a successful stream.
func (w *Writer) WriteDone(ctx context.Context) error {
	return w.WriteJSON(ctx, "done", map[string]bool{"done": true})
}

// WriteError sends an error event with a machine-readable code and a
// human-readable message.
func (w *Writer) WriteError(ctx context.Context, code, message string) error {
	return w.WriteJSON(ctx, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
