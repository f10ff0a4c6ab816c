package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	asqs "github.com/heartmarshall/vocab-enricher/internal/adapter/sqs"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/engine"
	"github.com/heartmarshall/vocab-enricher/pkg/ctxutil"
)

type fakeQueue struct {
	mu        sync.Mutex
	receiveFn func(ctx context.Context) ([]asqs.Message, error)
	deleted   []string
}

func (f *fakeQueue) Receive(ctx context.Context) ([]asqs.Message, error) {
	return f.receiveFn(ctx)
}

func (f *fakeQueue) Delete(_ context.Context, receiptHandle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, receiptHandle)
	return nil
}

func (f *fakeQueue) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// scriptedQueue serves the given batches in order, then cancels the worker.
func scriptedQueue(cancel context.CancelFunc, batches ...[]asqs.Message) *fakeQueue {
	calls := 0
	return &fakeQueue{receiveFn: func(ctx context.Context) ([]asqs.Message, error) {
		defer func() { calls++ }()
		if calls < len(batches) {
			return batches[calls], nil
		}
		cancel()
		return nil, ctx.Err()
	}}
}

type runCall struct {
	state     *domain.State
	vocabWord string
	requestID string
	deadline  time.Time
}

type fakeRunner struct {
	mu    sync.Mutex
	runFn func(ctx context.Context, state *domain.State) (engine.Result, error)
	calls []runCall
}

func (f *fakeRunner) Run(ctx context.Context, state *domain.State) (engine.Result, error) {
	deadline, _ := ctx.Deadline()
	f.mu.Lock()
	f.calls = append(f.calls, runCall{
		state:     state,
		vocabWord: ctxutil.VocabWordFromCtx(ctx),
		requestID: ctxutil.RequestIDFromCtx(ctx),
		deadline:  deadline,
	})
	f.mu.Unlock()
	return f.runFn(ctx, state)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakePublisher) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

func (f *fakePublisher) count(t domain.EventType) int {
	n := 0
	for _, typ := range f.types() {
		if typ == t {
			n++
		}
	}
	return n
}

func newTestWorker(q *fakeQueue, r *fakeRunner, p *fakePublisher) *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, q, r, p, 90*time.Second)
}

func message(id, body string) asqs.Message {
	return asqs.Message{ID: id, ReceiptHandle: "rh-" + id, Body: body}
}

const validBody = `{"source_word":"casa","target_language":"es","source_language":"en","user_id":"u1"}`

func completedResult() (engine.Result, error) {
	return engine.Result{Status: engine.StatusCompleted, Entry: &domain.VocabEntry{TargetWord: "casa"}}, nil
}

func TestWorker_ProcessesRecordToCompletion(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", validBody)})
	r := &fakeRunner{runFn: func(context.Context, *domain.State) (engine.Result, error) { return completedResult() }}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	types := p.types()
	if len(types) != 2 || types[0] != domain.EventProcessingStarted || types[1] != domain.EventProcessingCompleted {
		t.Errorf("events = %v", types)
	}
	if got := q.deletedHandles(); len(got) != 1 || got[0] != "rh-m1" {
		t.Errorf("deleted = %v", got)
	}

	if len(r.calls) != 1 {
		t.Fatalf("runner calls = %d", len(r.calls))
	}
	call := r.calls[0]
	if call.vocabWord != "es#casa" {
		t.Errorf("vocab word = %q", call.vocabWord)
	}
	if call.requestID == "" || call.state.RequestID != call.requestID {
		t.Errorf("request id not stamped: ctx=%q state=%q", call.requestID, call.state.RequestID)
	}
	if call.deadline.IsZero() || time.Until(call.deadline) > 90*time.Second {
		t.Errorf("deadline = %v, want within the processing window", call.deadline)
	}
	if call.state.UserID != "u1" || call.state.Word != "casa" {
		t.Errorf("state = %+v", call.state)
	}
}

func TestWorker_CacheHitSkipsPipeline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", validBody)})
	r := &fakeRunner{runFn: func(context.Context, *domain.State) (engine.Result, error) {
		return engine.Result{
			Status:   engine.StatusCacheHit,
			Existing: []domain.ExistingItem{{TargetWord: "casa"}},
		}, nil
	}}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	types := p.types()
	if len(types) != 2 || types[1] != domain.EventCacheHit {
		t.Errorf("events = %v", types)
	}
	if len(q.deletedHandles()) != 1 {
		t.Errorf("cache hit should delete the record")
	}
}

func TestWorker_DeterministicFailureDeletesRecord(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", validBody)})
	r := &fakeRunner{runFn: func(context.Context, *domain.State) (engine.Result, error) {
		return engine.Result{
			Status:      engine.StatusFailed,
			Message:     "not a real word",
			Suggestions: []string{"casa", "caso"},
		}, nil
	}}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p.count(domain.EventProcessingFailed) != 1 {
		t.Errorf("events = %v", p.types())
	}
	if len(q.deletedHandles()) != 1 {
		t.Error("rejected word should not redeliver")
	}

	var failed domain.Event
	for _, ev := range p.events {
		if ev.Type == domain.EventProcessingFailed {
			failed = ev
		}
	}
	data, ok := failed.Data.(map[string]any)
	if !ok || data["error"] != "not a real word" {
		t.Errorf("failed data = %+v", failed.Data)
	}
}

func TestWorker_EngineErrorLeavesRecordForRedelivery(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", validBody)})
	r := &fakeRunner{runFn: func(context.Context, *domain.State) (engine.Result, error) {
		return engine.Result{}, domain.ErrUnavailable
	}}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p.count(domain.EventProcessingFailed) != 1 {
		t.Errorf("events = %v", p.types())
	}
	if len(q.deletedHandles()) != 0 {
		t.Errorf("deleted = %v, want record left on the queue", q.deletedHandles())
	}
}

func TestWorker_MalformedRecordDroppedWithoutEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", `{"target_language":"es"}`)})
	r := &fakeRunner{runFn: func(context.Context, *domain.State) (engine.Result, error) {
		t.Error("engine ran for a rejected record")
		return engine.Result{}, nil
	}}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(p.types()) != 0 {
		t.Errorf("events = %v, want none", p.types())
	}
	if len(q.deletedHandles()) != 1 {
		t.Error("poison record should be dropped")
	}
}

func TestWorker_SiblingRecordsAreIsolated(t *testing.T) {
	t.Parallel()

	sick := `{"source_word":"krank","target_language":"de","user_id":"u1"}`
	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{
		message("m1", sick),
		message("m2", validBody),
	})
	r := &fakeRunner{runFn: func(_ context.Context, state *domain.State) (engine.Result, error) {
		if state.Word == "krank" {
			return engine.Result{}, errors.New("provider exploded")
		}
		return completedResult()
	}}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := q.deletedHandles(); len(got) != 1 || got[0] != "rh-m2" {
		t.Errorf("deleted = %v, want only the healthy record", got)
	}
	if p.count(domain.EventProcessingStarted) != 2 ||
		p.count(domain.EventProcessingCompleted) != 1 ||
		p.count(domain.EventProcessingFailed) != 1 {
		t.Errorf("events = %v", p.types())
	}
}

func TestWorker_PreservesCallerRequestID(t *testing.T) {
	t.Parallel()

	body := `{"source_word":"casa","target_language":"es","request_id":"r-9"}`
	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", body)})
	r := &fakeRunner{runFn: func(context.Context, *domain.State) (engine.Result, error) { return completedResult() }}
	p := &fakePublisher{}

	if err := newTestWorker(q, r, p).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.calls) != 1 || r.calls[0].requestID != "r-9" {
		t.Errorf("request id = %q, want caller's r-9", r.calls[0].requestID)
	}
}

func TestWorker_InFlightRecordSurvivesShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := scriptedQueue(cancel, []asqs.Message{message("m1", validBody)})
	r := &fakeRunner{runFn: func(runCtx context.Context, _ *domain.State) (engine.Result, error) {
		cancel() // shutdown arrives mid-record
		if runCtx.Err() != nil {
			return engine.Result{}, runCtx.Err()
		}
		return completedResult()
	}}
	p := &fakePublisher{}

	done := make(chan error, 1)
	go func() { done <- newTestWorker(q, r, p).Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain and stop")
	}

	if len(q.deletedHandles()) != 1 {
		t.Error("in-flight record was not finished during shutdown")
	}
	if p.count(domain.EventProcessingCompleted) != 1 {
		t.Errorf("events = %v", p.types())
	}
}

func TestWorker_ReceiveErrorDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := &fakeQueue{receiveFn: func(context.Context) ([]asqs.Message, error) {
		calls++
		// Shutdown arrives while the worker backs off from the failure.
		time.AfterFunc(20*time.Millisecond, cancel)
		return nil, errors.New("throttled")
	}}
	w := newTestWorker(q, &fakeRunner{}, &fakePublisher{})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker wedged after receive error")
	}
	if calls != 1 {
		t.Errorf("receive calls = %d", calls)
	}
}
