// Package engine walks the enrichment graph: a fixed node table with
// conditional routing, a quality gate around every tool call, and a fan-out
// stage whose branch deltas merge through a single channel.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/observe"
	"github.com/heartmarshall/vocab-enricher/internal/supervisor"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

// Publisher delivers progress events to subscribers. Implementations log
// delivery failures rather than returning them.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// Store persists the finished artifact and its media search rows.
type Store interface {
	PutEntry(ctx context.Context, entry *domain.VocabEntry) error
	PutSearchRefs(ctx context.Context, entry *domain.VocabEntry, terms []string) error
}

// Status classifies how a run ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCacheHit  Status = "cache_hit"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Status      Status
	State       *domain.State
	Entry       *domain.VocabEntry
	Existing    []domain.ExistingItem
	Message     string
	Suggestions []string
}

type nodeID string

const (
	nodeValidate   nodeID = "validate_source_word"
	nodeClassify   nodeID = "get_classification"
	nodeTranslate  nodeID = "get_translation"
	nodeSeqGate    nodeID = "check_sequential_quality"
	nodeCoordinate nodeID = "coordinate_parallel_tasks"
	nodeParallel   nodeID = "run_parallel_tasks"
	nodeFinal      nodeID = "final_quality_check"

	endInvalid  nodeID = "end:invalid_word"
	endExists   nodeID = "end:word_exists"
	endGateFail nodeID = "end:quality_gate_failed"
	endComplete nodeID = "end:complete"
)

type nodeFunc func(ctx context.Context, s *domain.State) (domain.Delta, nodeID, error)

// Deps are the engine's collaborators. Metrics may be nil.
type Deps struct {
	Log        *slog.Logger
	Supervisor *supervisor.Supervisor
	Tools      []tool.Tool
	Store      Store
	Publisher  Publisher
	Metrics    *observe.Metrics
}

// Engine runs the enrichment graph. An Engine is safe for concurrent use:
// all per-request state lives in the State passed to Run.
type Engine struct {
	log     *slog.Logger
	sup     *supervisor.Supervisor
	tools   map[domain.ToolName]tool.Tool
	store   Store
	publish Publisher
	metrics *observe.Metrics
	exec    *Executor
	nodes   map[nodeID]nodeFunc
}

// Build wires the static node table.
func Build(deps Deps) *Engine {
	if deps.Metrics == nil {
		deps.Metrics = observe.NewNopMetrics()
	}
	e := &Engine{
		log:     deps.Log,
		sup:     deps.Supervisor,
		tools:   make(map[domain.ToolName]tool.Tool, len(deps.Tools)),
		store:   deps.Store,
		publish: deps.Publisher,
		metrics: deps.Metrics,
		exec:    NewExecutor(deps.Log, deps.Supervisor, deps.Publisher, deps.Metrics),
	}
	for _, t := range deps.Tools {
		e.tools[domain.ToolName(t.Name())] = t
	}
	e.nodes = map[nodeID]nodeFunc{
		nodeValidate:   e.validateSourceWord,
		nodeClassify:   e.classify,
		nodeTranslate:  e.translate,
		nodeSeqGate:    e.checkSequentialQuality,
		nodeCoordinate: e.coordinateParallelTasks,
		nodeParallel:   e.runParallelTasks,
		nodeFinal:      e.finalQualityCheck,
	}
	return e
}

// Run walks the graph from validation to a terminal and performs the
// terminal's side effects: the completed path persists the artifact and its
// search rows; the invalid and exists paths write nothing. Each merged
// delta is published as a chunk_update.
func (e *Engine) Run(ctx context.Context, state *domain.State) (Result, error) {
	start := time.Now()
	cur := nodeValidate
	for {
		fn, ok := e.nodes[cur]
		if !ok {
			break
		}
		d, next, err := fn(ctx, state)
		if err != nil {
			e.metrics.RecordRequest(ctx, "failed", time.Since(start).Seconds())
			return Result{Status: StatusFailed, State: state, Message: err.Error()}, err
		}
		if !d.Empty() {
			state.Merge(d)
			e.emit(ctx, domain.ChunkUpdate(state, d))
		}
		cur = next
	}
	return e.finish(ctx, state, cur, start)
}

func (e *Engine) finish(ctx context.Context, s *domain.State, end nodeID, start time.Time) (Result, error) {
	switch end {
	case endInvalid:
		msg := s.IssueMessage
		if msg == "" {
			msg = fmt.Sprintf("%q was not recognized as a word", s.Word)
		}
		e.metrics.RecordRequest(ctx, "invalid", time.Since(start).Seconds())
		return Result{Status: StatusFailed, State: s, Message: msg, Suggestions: s.IssueSuggestions}, nil
	case endExists:
		e.metrics.RecordRequest(ctx, "cache_hit", time.Since(start).Seconds())
		return Result{Status: StatusCacheHit, State: s, Existing: s.ExistingItems}, nil
	case endGateFail:
		e.metrics.RecordRequest(ctx, "gate_failed", time.Since(start).Seconds())
		return Result{Status: StatusFailed, State: s, Message: s.IssueMessage}, nil
	case endComplete:
		entry, err := e.persist(ctx, s)
		if err != nil {
			e.metrics.RecordRequest(ctx, "failed", time.Since(start).Seconds())
			return Result{Status: StatusFailed, State: s, Message: err.Error()}, err
		}
		e.metrics.RecordRequest(ctx, "completed", time.Since(start).Seconds())
		return Result{Status: StatusCompleted, State: s, Entry: entry}, nil
	}
	err := fmt.Errorf("engine: unknown node %q", end)
	return Result{Status: StatusFailed, State: s, Message: err.Error()}, err
}

// persist writes the artifact and, when the media was freshly fetched with
// usable images, the search rows that seed the reuse index. A search-row
// failure degrades to a warning so it cannot undo a stored artifact.
func (e *Engine) persist(ctx context.Context, s *domain.State) (*domain.VocabEntry, error) {
	entry := s.Entry(time.Now())
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("assemble artifact: %w", err)
	}
	if err := e.store.PutEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	if !s.MediaReused && len(s.SearchQuery) > 0 && s.Media != nil && !s.Media.Src.Empty() {
		if err := e.store.PutSearchRefs(ctx, entry, s.SearchQuery); err != nil {
			e.log.WarnContext(ctx, "search reference write failed",
				slog.String("word", s.Word), slog.Any("error", err))
		}
	}
	return entry, nil
}

func (e *Engine) validateSourceWord(ctx context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	d := e.run(ctx, s, domain.ToolValidation)
	if d.Validated == nil || !*d.Validated {
		return d, endInvalid, nil
	}
	return d, nodeClassify, nil
}

func (e *Engine) classify(ctx context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	d := e.run(ctx, s, domain.ToolClassification)
	if len(d.ExistingItems) > 0 {
		return d, endExists, nil
	}
	return d, nodeTranslate, nil
}

func (e *Engine) translate(ctx context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	return e.run(ctx, s, domain.ToolTranslation), nodeSeqGate, nil
}

// checkSequentialQuality requires the three sequential stages to have
// passed their gates before anything fans out.
func (e *Engine) checkSequentialQuality(_ context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	var failing []string
	for _, name := range []domain.ToolName{domain.ToolValidation, domain.ToolClassification, domain.ToolTranslation} {
		if q, ok := s.QualityFor(name); !ok || !q.Approved {
			failing = append(failing, string(name))
		}
	}
	if len(failing) > 0 {
		msg := "quality gate failed for " + strings.Join(failing, ", ")
		return domain.Delta{IssueMessage: &msg}, endGateFail, nil
	}
	return domain.Delta{}, nodeCoordinate, nil
}

func (e *Engine) coordinateParallelTasks(_ context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	return domain.Delta{ParallelTasks: e.sup.CoordinateParallelTasks(s)}, nodeParallel, nil
}

// runParallelTasks launches the fan-out branches and serializes their
// deltas through one channel consumed here, so the shared state has a
// single writer. Branches work on private copies taken before launch;
// pronunciation chains inside the syllables branch because it consumes the
// syllable list. A branch failure is only ever context cancellation, since
// tool errors became fallbacks inside the executor.
func (e *Engine) runParallelTasks(ctx context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	tasks := s.ParallelTasks
	planned := make(map[domain.ToolName]bool, len(tasks))
	for _, name := range tasks {
		planned[name] = true
	}

	deltas := make(chan domain.Delta, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	launch := func(chain ...domain.ToolName) {
		local := s.Clone()
		g.Go(func() error {
			for _, name := range chain {
				d := e.run(gctx, local, name)
				local.Merge(d)
				select {
				case deltas <- d:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	for _, name := range []domain.ToolName{domain.ToolMedia, domain.ToolExamples, domain.ToolSynonyms, domain.ToolConjugation} {
		if planned[name] {
			launch(name)
		}
	}
	switch {
	case planned[domain.ToolSyllables] && planned[domain.ToolPronunciation]:
		launch(domain.ToolSyllables, domain.ToolPronunciation)
	case planned[domain.ToolSyllables]:
		launch(domain.ToolSyllables)
	case planned[domain.ToolPronunciation]:
		launch(domain.ToolPronunciation)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- g.Wait()
		close(deltas)
	}()

	for d := range deltas {
		s.Merge(d)
		e.emit(ctx, domain.ChunkUpdate(s, d))
	}
	if err := <-errc; err != nil {
		return domain.Delta{}, "", fmt.Errorf("parallel stage: %w", err)
	}
	if !s.HasCompleted(tasks...) {
		return domain.Delta{}, "", fmt.Errorf("parallel stage ended with incomplete tasks")
	}
	done := true
	return domain.Delta{ParallelComplete: &done}, nodeFinal, nil
}

// finalQualityCheck folds the recorded verdicts into the overall score and
// the pass/fail counts.
func (e *Engine) finalQualityCheck(_ context.Context, s *domain.State) (domain.Delta, nodeID, error) {
	var passed, failed int
	for _, q := range s.Quality {
		if q.Approved {
			passed++
		} else {
			failed++
		}
	}
	mean := s.ApprovedMean()
	done := true
	return domain.Delta{
		OverallScore:       &mean,
		GatesPassed:        &passed,
		GatesFailed:        &failed,
		ProcessingComplete: &done,
	}, endComplete, nil
}

func (e *Engine) run(ctx context.Context, s *domain.State, name domain.ToolName) domain.Delta {
	t, ok := e.tools[name]
	if !ok {
		e.log.ErrorContext(ctx, "no such tool wired", slog.String("tool", string(name)))
		return domain.Delta{
			Quality:   map[domain.ToolName]domain.Quality{name: {}},
			Completed: []domain.ToolName{name},
		}
	}
	return e.exec.Execute(ctx, s, t, buildInputs(name, s))
}

func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	if e.publish != nil {
		e.publish.Publish(ctx, ev)
	}
}
