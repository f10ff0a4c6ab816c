package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/observe"
	"github.com/heartmarshall/vocab-enricher/internal/supervisor"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

// Executor pushes one tool invocation through the quality gate: run the
// tool, have the supervisor score the output, then accept it, retry with
// the verdict folded into the inputs, or emit the fallback document.
type Executor struct {
	log     *slog.Logger
	sup     *supervisor.Supervisor
	publish Publisher
	metrics *observe.Metrics
}

func NewExecutor(log *slog.Logger, sup *supervisor.Supervisor, publish Publisher, metrics *observe.Metrics) *Executor {
	if metrics == nil {
		metrics = observe.NewNopMetrics()
	}
	return &Executor{log: log, sup: sup, publish: publish, metrics: metrics}
}

// Execute runs the tool until its output is accepted or retries are spent.
// local is the caller's private state; retry counters merge into it as the
// loop progresses. The returned delta carries the accepted or fallback
// fields plus the quality verdict and the completion marker. Execute never
// fails: tool errors and panics degrade to the fallback document.
func (e *Executor) Execute(ctx context.Context, local *domain.State, t tool.Tool, in tool.Inputs) domain.Delta {
	name := domain.ToolName(t.Name())
	start := time.Now()
	for {
		attempt := 0
		if q, ok := local.QualityFor(name); ok {
			attempt = q.RetryCount
		}
		in[tool.KeyTier] = e.sup.TierFor(attempt)

		out, err := runTool(ctx, t, in)
		if err != nil {
			e.log.WarnContext(ctx, "tool failed, using fallback",
				slog.String("tool", string(name)), slog.Int("attempt", attempt), slog.Any("error", err))
			return e.conclude(ctx, local, t, attempt, start, err.Error())
		}

		v := e.sup.ValidateToolOutput(ctx, string(name), out.Result, local, out.Prompt)
		plan := e.sup.PlanRetryStrategy(string(name), v, local)
		switch {
		case plan.Accept:
			d, derr := resultDelta(name, out.Result)
			if derr != nil {
				e.log.WarnContext(ctx, "accepted result failed to decode, using fallback",
					slog.String("tool", string(name)), slog.Any("error", derr))
				return e.conclude(ctx, local, t, attempt, start, fmt.Sprintf("result decode failed: %v", derr))
			}
			d.Quality = map[domain.ToolName]domain.Quality{name: {
				Approved:   true,
				Score:      domain.Quantize4(v.Score),
				RetryCount: attempt,
			}}
			d.Completed = []domain.ToolName{name}
			e.emit(ctx, domain.StepUpdate(local, name, attempt, "approved", v.Score))
			e.metrics.RecordToolRun(ctx, string(name), "approved")
			e.metrics.ObserveToolDuration(ctx, string(name), time.Since(start).Seconds())
			return d
		case plan.ShouldRetry:
			e.log.InfoContext(ctx, "tool output rejected, retrying",
				slog.String("tool", string(name)), slog.Int("attempt", attempt),
				slog.Float64("score", v.Score), slog.String("reason", plan.RetryReason))
			local.Merge(domain.Delta{Quality: map[domain.ToolName]domain.Quality{name: {
				Score:      domain.Quantize4(v.Score),
				RetryCount: attempt + 1,
			}}})
			in.Merge(plan.AdjustedInputs)
			e.emit(ctx, domain.StepUpdate(local, name, attempt, "retry", v.Score))
			e.metrics.RecordToolRetry(ctx, string(name))
		default:
			e.log.WarnContext(ctx, "tool output rejected with retries spent, using fallback",
				slog.String("tool", string(name)), slog.Int("attempt", attempt), slog.Float64("score", v.Score))
			return e.conclude(ctx, local, t, attempt, start,
				fmt.Sprintf("rejected after %d attempts, last score %.2f", attempt+1, v.Score))
		}
	}
}

// conclude emits the tool's fallback document with a rejected verdict.
func (e *Executor) conclude(ctx context.Context, local *domain.State, t tool.Tool, attempt int, start time.Time, reason string) domain.Delta {
	name := domain.ToolName(t.Name())
	d, err := resultDelta(name, t.Fallback(reason))
	if err != nil {
		e.log.ErrorContext(ctx, "fallback document failed to decode",
			slog.String("tool", string(name)), slog.Any("error", err))
		d = domain.Delta{}
	}
	d.Quality = map[domain.ToolName]domain.Quality{name: {Approved: false, Score: 0, RetryCount: attempt}}
	d.Completed = []domain.ToolName{name}
	e.emit(ctx, domain.StepUpdate(local, name, attempt, "failed", 0))
	e.metrics.RecordToolRun(ctx, string(name), "failed")
	e.metrics.ObserveToolDuration(ctx, string(name), time.Since(start).Seconds())
	return d
}

func (e *Executor) emit(ctx context.Context, ev domain.Event) {
	if e.publish != nil {
		e.publish.Publish(ctx, ev)
	}
}

// runTool converts tool panics into errors so one branch cannot kill its
// siblings.
func runTool(ctx context.Context, t tool.Tool, in tool.Inputs) (out tool.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return t.Run(ctx, in)
}
