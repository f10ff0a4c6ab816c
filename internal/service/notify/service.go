// Package notify broadcasts progress events to the WebSocket connections
// subscribed to a vocab word. Delivery is best-effort: a failed post is
// logged, a gone connection is unsubscribed, and the pipeline never waits
// on either.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/pkg/ctxutil"
)

type subscriptions interface {
	Subscribe(ctx context.Context, connectionID, vocabWord string) error
	ListSubscribers(ctx context.Context, vocabWord string) ([]string, error)
	Delete(ctx context.Context, connectionID string) error
}

type poster interface {
	Post(ctx context.Context, connectionID string, payload []byte) error
}

// Service fans events out over the API Gateway management API.
type Service struct {
	log  *slog.Logger
	subs subscriptions
	post poster
}

// NewService creates a notify service.
func NewService(log *slog.Logger, subs subscriptions, post poster) *Service {
	return &Service{
		log:  log.With("service", "notify"),
		subs: subs,
		post: post,
	}
}

// Subscribe binds a WebSocket connection to a vocab word. A connection holds
// one subscription at a time, so resubscribing moves it.
func (s *Service) Subscribe(ctx context.Context, connectionID, vocabWord string) error {
	if connectionID == "" || vocabWord == "" {
		return fmt.Errorf("connection id and vocab word are required: %w", domain.ErrInvalidInput)
	}
	if err := s.subs.Subscribe(ctx, connectionID, vocabWord); err != nil {
		return fmt.Errorf("subscribe %s: %w", connectionID, err)
	}
	s.log.InfoContext(ctx, "subscribed",
		slog.String("connection_id", connectionID),
		slog.String("vocab_word", vocabWord),
	)
	return nil
}

// Publish sends the event to every connection subscribed to the request's
// vocab word. The routing key travels in the context so the engine stays
// unaware of routing. Without a key the event is dropped with a debug line.
func (s *Service) Publish(ctx context.Context, ev domain.Event) {
	vocabWord := ctxutil.VocabWordFromCtx(ctx)
	if vocabWord == "" {
		s.log.DebugContext(ctx, "no routing key, event not broadcast",
			slog.String("type", ev.Type.String()))
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.ErrorContext(ctx, "event marshal failed",
			slog.String("type", ev.Type.String()), slog.String("error", err.Error()))
		return
	}

	conns, err := s.subs.ListSubscribers(ctx, vocabWord)
	if err != nil {
		s.log.ErrorContext(ctx, "subscriber lookup failed",
			slog.String("vocab_word", vocabWord), slog.String("error", err.Error()))
		return
	}
	if len(conns) == 0 {
		return
	}

	delivered := 0
	for _, conn := range conns {
		err := s.post.Post(ctx, conn, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, domain.ErrNotFound):
			// The client went away between subscribing and now.
			if derr := s.subs.Delete(ctx, conn); derr != nil {
				s.log.WarnContext(ctx, "stale connection cleanup failed",
					slog.String("connection_id", conn), slog.String("error", derr.Error()))
			}
		default:
			s.log.WarnContext(ctx, "event delivery failed",
				slog.String("connection_id", conn), slog.String("error", err.Error()))
		}
	}

	s.log.DebugContext(ctx, "event broadcast",
		slog.String("type", ev.Type.String()),
		slog.String("vocab_word", vocabWord),
		slog.Int("delivered", delivered),
	)
}
