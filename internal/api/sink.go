package api

import (
	"context"

	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/sse"
	"github.com/kanpan0/kanpan/internal/workflow"
)

// sseSink forwards workflow events to an open SSE stream. Each Emit is one
// wire write in emission order; write failures (usually a client that went
// away) are logged and swallowed so the workflow itself never observes
// transport trouble.
type sseSink struct {
	ctx    context.Context
	writer *sse.Writer
	logger log.Logger
}

var _ workflow.Sink = (*sseSink)(nil)

func newSSESink(ctx context.Context, writer *sse.Writer, logger log.Logger) *sseSink {
	return &sseSink{ctx: ctx, writer: writer, logger: logger}
}

// Emit writes one event as an unnamed SSE message; the JSON payload carries
// the type discriminator and display payloads already flattened to strings.
func (s *sseSink) Emit(event workflow.Event) {
	wire := workflow.Marshal(event)
	if err := s.writer.WriteJSON(s.ctx, "", wire); err != nil {
		s.logger.Debug("dropping workflow event, stream write failed",
			"kind", event.Kind(), "error", err)
	}
}
