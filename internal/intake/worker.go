// Package intake pulls enrichment requests off the inbound queue and runs
// them through the engine, one isolated goroutine per record. Terminal
// outcomes delete the record; transient engine failures leave it for
// redelivery.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	asqs "github.com/heartmarshall/vocab-enricher/internal/adapter/sqs"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/engine"
	"github.com/heartmarshall/vocab-enricher/pkg/ctxutil"
)

const receiveBackoff = 5 * time.Second

type queue interface {
	Receive(ctx context.Context) ([]asqs.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type runner interface {
	Run(ctx context.Context, state *domain.State) (engine.Result, error)
}

type publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// Worker is the queue-driven front of the pipeline.
type Worker struct {
	log     *slog.Logger
	queue   queue
	engine  runner
	publish publisher
	timeout time.Duration
}

// New creates an intake worker. timeout bounds one record's wall clock and
// must stay under the queue's visibility timeout.
func New(log *slog.Logger, q queue, eng runner, pub publisher, timeout time.Duration) *Worker {
	return &Worker{
		log:     log.With("component", "intake"),
		queue:   q,
		engine:  eng,
		publish: pub,
		timeout: timeout,
	}
}

// Run long-polls the queue until ctx is cancelled. In-flight records drain
// before it returns; their processing contexts outlive the cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "intake started")
	for {
		if ctx.Err() != nil {
			w.log.InfoContext(ctx, "intake stopped")
			return nil
		}

		msgs, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.InfoContext(ctx, "intake stopped")
				return nil
			}
			w.log.ErrorContext(ctx, "receive failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		g := new(errgroup.Group)
		for _, msg := range msgs {
			g.Go(func() error {
				return w.process(ctx, msg)
			})
		}
		if err := g.Wait(); err != nil {
			w.log.WarnContext(ctx, "batch had failures", slog.String("error", err.Error()))
		}
	}
}

// process runs one record start to finish. The record's context detaches
// from the receive loop so shutdown does not abort work already admitted;
// the wall clock alone bounds it.
func (w *Worker) process(parent context.Context, msg asqs.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.timeout)
	defer cancel()

	req, err := domain.ParseRequest([]byte(msg.Body))
	if err != nil {
		// A record that cannot parse never will; redelivering it would
		// cycle until the DLQ. Drop it without an event.
		w.log.ErrorContext(ctx, "rejected record dropped",
			slog.String("message_id", msg.ID), slog.String("error", err.Error()))
		return w.queue.Delete(ctx, msg.ReceiptHandle)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	ctx = ctxutil.WithRequestID(ctx, req.RequestID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)
	ctx = ctxutil.WithVocabWord(ctx, domain.VocabWordKey(req.TargetLanguage, req.Word))
	log := w.log.With(slog.String("request_id", req.RequestID), slog.String("word", req.Word))

	state := domain.NewState(req)
	w.publish.Publish(ctx, domain.ProcessingStarted(state))
	log.InfoContext(ctx, "processing record", slog.String("message_id", msg.ID))

	res, err := w.engine.Run(ctx, state)
	if err != nil {
		w.publish.Publish(ctx, domain.ProcessingFailed(state, failureMessage(err), nil))
		log.ErrorContext(ctx, "record failed, left for redelivery", slog.String("error", err.Error()))
		return fmt.Errorf("process %s: %w", msg.ID, err)
	}

	switch res.Status {
	case engine.StatusCacheHit:
		w.publish.Publish(ctx, domain.CacheHit(state, res.Existing))
	case engine.StatusCompleted:
		w.publish.Publish(ctx, domain.ProcessingCompleted(state, res.Entry))
	case engine.StatusFailed:
		w.publish.Publish(ctx, domain.ProcessingFailed(state, res.Message, res.Suggestions))
	}
	log.InfoContext(ctx, "record done", slog.String("status", string(res.Status)))

	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		log.WarnContext(ctx, "delete failed, record may redeliver", slog.String("error", err.Error()))
	}
	return nil
}

func failureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrDeadline) {
		return "processing timed out, the request will be retried"
	}
	if errors.Is(err, domain.ErrUnavailable) {
		return "a backing service is unavailable, the request will be retried"
	}
	return err.Error()
}
