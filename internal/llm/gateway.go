// Package llm is the provider-agnostic gateway for schema-constrained
// generation. A Binding turns one request into raw JSON; the Gateway routes
// calls to the configured model tier, validates the output against its
// schema, and surfaces token usage to an optional sink.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/heartmarshall/vocab-enricher/internal/config"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// Provider identifies one model binding.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderBedrock   Provider = "bedrock"
)

func (p Provider) String() string { return string(p) }

func (p Provider) IsValid() bool {
	switch p {
	case ProviderAnthropic, ProviderOpenAI, ProviderBedrock:
		return true
	}
	return false
}

// Tier selects the model strength for a call. Tool calls start on the cheap
// executor tier; quality checks and late retries use the supervisor tier.
type Tier string

const (
	TierExecutor   Tier = "executor"
	TierSupervisor Tier = "supervisor"
)

func (t Tier) String() string { return string(t) }

// Usage is the token accounting of one call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int64 { return u.PromptTokens + u.CompletionTokens }

// Request is a fully resolved provider invocation.
type Request struct {
	Model       string
	System      string
	User        string
	Schema      Schema
	MaxTokens   int
	Temperature *float64
}

// RawResult is a provider's structured reply before validation.
type RawResult struct {
	JSON  []byte
	Model string
	Usage Usage
}

// Binding is one provider integration. Implementations must be safe for
// concurrent use.
type Binding interface {
	Provider() Provider
	Generate(ctx context.Context, req Request) (RawResult, error)
}

// UsageSink receives per-call token accounting.
type UsageSink interface {
	RecordLLMUsage(ctx context.Context, provider, model, tier string, promptTokens, completionTokens int64)
	RecordLLMError(ctx context.Context, provider, model, tier string)
}

// Routing maps tiers to model identifiers.
type Routing struct {
	Executor   string
	Supervisor string
}

// Model resolves the model identifier for a tier.
func (r Routing) Model(t Tier) string {
	if t == TierSupervisor {
		return r.Supervisor
	}
	return r.Executor
}

// Call is one gateway invocation.
type Call struct {
	Schema      Schema
	System      string
	User        string
	Tier        Tier
	Temperature *float64
}

// Temp builds a temperature override for a Call.
func Temp(v float64) *float64 { return &v }

// retryDelay is the pause before the single transparent retry on a
// rate-limited call.
const retryDelay = 500 * time.Millisecond

// Gateway validates structured LLM output against per-call schemas and
// accounts token usage. Safe for concurrent use.
type Gateway struct {
	log       *slog.Logger
	binding   Binding
	routing   Routing
	maxTokens int
	timeout   time.Duration
	sink      UsageSink

	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewGateway builds a gateway over one binding. sink may be nil.
func NewGateway(log *slog.Logger, binding Binding, cfg config.LLMConfig, sink UsageSink) *Gateway {
	return &Gateway{
		log:     log.With("service", "llm_gateway"),
		binding: binding,
		routing: Routing{
			Executor:   cfg.ExecutorModel,
			Supervisor: cfg.SupervisorModel,
		},
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		sink:      sink,
		compiled:  make(map[string]*jsonschema.Schema),
	}
}

// Generate runs one schema-constrained call on the tier's model and decodes
// the validated output into out. Rate-limited calls are retried once.
// Protocol failures (missing output, malformed or off-schema JSON) wrap
// domain.ErrProviderProtocol.
func (g *Gateway) Generate(ctx context.Context, call Call, out any) error {
	model := g.routing.Model(call.Tier)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := Request{
		Model:       model,
		System:      call.System,
		User:        call.User,
		Schema:      call.Schema,
		MaxTokens:   g.maxTokens,
		Temperature: call.Temperature,
	}

	res, err := g.binding.Generate(ctx, req)
	if err != nil && errors.Is(err, domain.ErrUnavailable) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("generate %s: %w", call.Schema.Name, ctx.Err())
		case <-time.After(retryDelay):
		}
		res, err = g.binding.Generate(ctx, req)
	}
	if err != nil {
		if g.sink != nil {
			g.sink.RecordLLMError(ctx, g.binding.Provider().String(), model, call.Tier.String())
		}
		return fmt.Errorf("generate %s: %w", call.Schema.Name, err)
	}

	if g.sink != nil {
		g.sink.RecordLLMUsage(ctx, g.binding.Provider().String(), res.Model, call.Tier.String(),
			res.Usage.PromptTokens, res.Usage.CompletionTokens)
	}
	g.log.DebugContext(ctx, "llm call finished",
		slog.String("schema", call.Schema.Name),
		slog.String("model", res.Model),
		slog.String("tier", call.Tier.String()),
		slog.Int64("prompt_tokens", res.Usage.PromptTokens),
		slog.Int64("completion_tokens", res.Usage.CompletionTokens),
	)

	data := stripFences(res.JSON)

	compiled, err := g.compiledSchema(call.Schema)
	if err != nil {
		return fmt.Errorf("schema %s: %w", call.Schema.Name, err)
	}
	if err := validateJSON(compiled, data); err != nil {
		return fmt.Errorf("generate %s: %w", call.Schema.Name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("generate %s: %w: decode: %v", call.Schema.Name, domain.ErrProviderProtocol, err)
	}
	return nil
}

// GenerateAsync runs Generate on its own goroutine. The returned channel
// delivers exactly one error value; out must not be read before that.
func (g *Gateway) GenerateAsync(ctx context.Context, call Call, out any) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- g.Generate(ctx, call, out)
	}()
	return ch
}

func (g *Gateway) compiledSchema(s Schema) (*jsonschema.Schema, error) {
	g.mu.RLock()
	cs, ok := g.compiled[s.Name]
	g.mu.RUnlock()
	if ok {
		return cs, nil
	}

	cs, err := s.compile()
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.compiled[s.Name] = cs
	g.mu.Unlock()
	return cs, nil
}
