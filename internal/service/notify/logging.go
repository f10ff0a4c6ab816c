package notify

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// Logging is a Publisher that writes events to the log instead of a socket.
// The CLI runs with it, and so does the worker when no WebSocket endpoint is
// configured.
type Logging struct {
	log *slog.Logger
}

func NewLogging(log *slog.Logger) *Logging {
	return &Logging{log: log.With("service", "notify")}
}

func (l *Logging) Publish(ctx context.Context, ev domain.Event) {
	l.log.InfoContext(ctx, "progress event",
		slog.String("type", ev.Type.String()),
		slog.String("request_id", ev.RequestID),
	)
}
