// Package supervisor is the quality-control brain of the pipeline. It scores
// tool outputs with a judge model, plans bounded retries with feedback
// injection, chooses the model tier per attempt, and decides which branches
// the parallel fan-out runs.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/vocab-enricher/internal/config"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

// Validation is the judge's verdict on one tool output.
type Validation struct {
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// RetryPlan is the decision taken after a below-threshold verdict.
type RetryPlan struct {
	ShouldRetry bool
	// Accept marks a no-retry outcome that still keeps the result: the
	// final-attempt floor was met.
	Accept         bool
	RetryReason    string
	AdjustedInputs map[string]any
}

// manualReviewScore is assigned when the judge itself fails, so one broken
// quality check cannot stall the pipeline.
const manualReviewScore = 5.0

var judgeSchema = llm.Schema{
	Name:        "quality_verdict",
	Description: "Score for a tool output, with issues and improvement suggestions.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 10,
			},
			"issues":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggestions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"score", "issues", "suggestions"},
	},
}

const judgeSystem = "You are a meticulous quality reviewer for generated dictionary content. You score strictly and justify every deduction."

// Generator is the slice of the LLM gateway the judge uses.
type Generator interface {
	Generate(ctx context.Context, call llm.Call, out any) error
}

// Supervisor owns the quality gate decisions. Safe for concurrent use; all
// fields are read-only after construction.
type Supervisor struct {
	log           *slog.Logger
	gw            Generator
	schemas       map[string]llm.Schema
	skip          map[string]bool
	threshold     float64
	maxRetries    int
	acceptOnFinal float64
}

// New builds a supervisor over the given tool set. The tools provide the
// per-name output schemas the judge prompt embeds.
func New(log *slog.Logger, gw Generator, cfg config.QualityConfig, tools []tool.Tool) *Supervisor {
	schemas := make(map[string]llm.Schema, len(tools))
	for _, t := range tools {
		schemas[t.Name()] = t.Schema()
	}
	skip := make(map[string]bool, len(cfg.SkipTools))
	for _, name := range cfg.SkipTools {
		skip[name] = true
	}
	return &Supervisor{
		log:           log.With("service", "supervisor"),
		gw:            gw,
		schemas:       schemas,
		skip:          skip,
		threshold:     cfg.Threshold,
		maxRetries:    cfg.MaxRetries,
		acceptOnFinal: cfg.AcceptOnFinal,
	}
}

// Threshold returns the approval score.
func (s *Supervisor) Threshold() float64 { return s.threshold }

// MaxRetries returns the retry budget per tool.
func (s *Supervisor) MaxRetries() int { return s.maxRetries }

// TierFor picks the model tier for a tool attempt: the cheap executor for
// the first attempt and first retry, the strong supervisor from the second
// retry on.
func (s *Supervisor) TierFor(retryCount int) llm.Tier {
	if retryCount > 1 {
		return llm.TierSupervisor
	}
	return llm.TierExecutor
}

// ValidateToolOutput scores one tool output. Skip-listed tools and the
// conjugation sentinel score a perfect 10; media short-circuits on
// well-formed image URLs and otherwise only has its search query checked
// against schema. Everything else goes to the judge model. A failing judge
// yields the manual-review score instead of an error.
func (s *Supervisor) ValidateToolOutput(ctx context.Context, toolName string, result map[string]any, state *domain.State, promptText string) Validation {
	if s.skip[toolName] {
		return Validation{Score: 10}
	}
	if toolName == domain.ToolConjugation.String() && result["conjugation"] == tool.NotAVerb {
		return Validation{Score: 10}
	}
	if toolName == domain.ToolMedia.String() {
		return s.validateMedia(result)
	}
	return s.judge(ctx, toolName, result, state, promptText)
}

// validateMedia approves outright when the result carries three well-formed
// image URLs. Placeholder or reused media without them passes as long as the
// search-query phase produced a schema-valid query.
func (s *Supervisor) validateMedia(result map[string]any) Validation {
	if hasWellFormedImages(result) {
		return Validation{Score: 10}
	}

	sub := map[string]any{
		"english_word": result["english_word"],
		"search_terms": result["search_query"],
	}
	raw, err := json.Marshal(sub)
	if err == nil {
		err = tool.SearchQuerySchema.Validate(raw)
	}
	if err != nil {
		return Validation{
			Score:  0,
			Issues: []string{fmt.Sprintf("search query malformed: %v", err)},
			Suggestions: []string{
				"produce one to three short English search terms naming something photographable",
			},
		}
	}
	return Validation{Score: 10}
}

// hasWellFormedImages reports whether result.media.src carries https JPEG
// URLs for all of large2x, large, and medium.
func hasWellFormedImages(result map[string]any) bool {
	media, ok := result["media"].(map[string]any)
	if !ok {
		return false
	}
	src, ok := media["src"].(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"large2x", "large", "medium"} {
		u, ok := src[key].(string)
		if !ok || !strings.HasPrefix(u, "https://") || !strings.HasSuffix(u, ".jpg") {
			return false
		}
	}
	return true
}

func (s *Supervisor) judge(ctx context.Context, toolName string, result map[string]any, state *domain.State, promptText string) Validation {
	schemaJSON := "{}"
	if schema, ok := s.schemas[toolName]; ok {
		if raw, err := json.MarshalIndent(schema.Doc, "", "  "); err == nil {
			schemaJSON = string(raw)
		}
	}
	outputJSON := "{}"
	if raw, err := json.MarshalIndent(result, "", "  "); err == nil {
		outputJSON = string(raw)
	}

	var v Validation
	call := llm.Call{
		Schema:      judgeSchema,
		System:      judgeSystem,
		User:        judgePrompt(toolName, state, schemaJSON, promptText, outputJSON),
		Tier:        llm.TierSupervisor,
		Temperature: llm.Temp(0),
	}
	if err := s.gw.Generate(ctx, call, &v); err != nil {
		s.log.WarnContext(ctx, "quality check failed, assigning manual-review score",
			slog.String("tool", toolName), slog.Any("error", err))
		return Validation{
			Score:  manualReviewScore,
			Issues: []string{fmt.Sprintf("quality check unavailable (%v); flagged for manual review", err)},
		}
	}

	if v.Score < 0 {
		v.Score = 0
	}
	if v.Score > 10 {
		v.Score = 10
	}
	if v.Score >= s.threshold {
		v.Issues = nil
		v.Suggestions = nil
	}
	return v
}

func judgePrompt(toolName string, state *domain.State, schemaJSON, promptText, outputJSON string) string {
	word := ""
	if state != nil {
		word = state.Word
	}
	return fmt.Sprintf(`A tool named %q produced output while enriching the word %q. Score from 0 to 10 how well the output fulfils the prompt's requirements and fits the declared schema.

Declared output schema:
%s

Prompt given to the tool:
%s

Tool output:
%s

Scoring guide: 10 is flawless; 8 and above passes; below 8 needs rework. When you score below 8, list the concrete issues and give actionable suggestions; otherwise leave both lists empty.`,
		toolName, word, schemaJSON, promptText, outputJSON)
}

// PlanRetryStrategy decides what happens after a verdict: approve at or
// above the threshold, accept at or above the final floor once retries are
// spent, otherwise retry with the verdict folded into the tool's inputs.
func (s *Supervisor) PlanRetryStrategy(toolName string, v Validation, state *domain.State) RetryPlan {
	if v.Score >= s.threshold {
		return RetryPlan{Accept: true, RetryReason: "score meets threshold"}
	}

	retryCount := 0
	if state != nil {
		if q, ok := state.QualityFor(domain.ToolName(toolName)); ok {
			retryCount = q.RetryCount
		}
	}
	if retryCount >= s.maxRetries {
		if v.Score >= s.acceptOnFinal {
			return RetryPlan{Accept: true, RetryReason: "score meets final-attempt floor"}
		}
		return RetryPlan{RetryReason: "retries exhausted"}
	}

	feedback := fmt.Sprintf("scored %.2f, below the %.2f threshold", v.Score, s.threshold)
	if len(v.Issues) > 0 {
		feedback = v.Issues[0]
	}
	return RetryPlan{
		ShouldRetry: true,
		RetryReason: fmt.Sprintf("score %.2f below threshold %.2f", v.Score, s.threshold),
		AdjustedInputs: map[string]any{
			tool.KeyQualityFeedback: feedback,
			tool.KeyPreviousIssues:  v.Issues,
			tool.KeySuggestions:     v.Suggestions,
		},
	}
}

// CoordinateParallelTasks names the branches to fan out for the state:
// always media, examples, synonyms, and syllables; conjugation when the
// target word is a verb; pronunciation always runs last in its branch.
func (s *Supervisor) CoordinateParallelTasks(state *domain.State) []domain.ToolName {
	tasks := []domain.ToolName{
		domain.ToolMedia,
		domain.ToolExamples,
		domain.ToolSynonyms,
		domain.ToolSyllables,
	}
	if state != nil && state.TargetPOS.IsConjugatable() {
		tasks = append(tasks, domain.ToolConjugation)
	}
	return append(tasks, domain.ToolPronunciation)
}