// Command enrich runs the enrichment pipeline once for a single word and
// prints the resulting artifact. It wires the same engine and providers as
// the worker but reads no queue and opens no WebSocket: progress events go
// to the log instead.
//
//	enrich -word casa -target es
//	enrich -word Haus -target de -source de -json
//
// Exit codes: 0 = enriched or already stored, 1 = error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/vocab-enricher/internal/app"
	"github.com/heartmarshall/vocab-enricher/internal/config"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/engine"
	"github.com/heartmarshall/vocab-enricher/pkg/ctxutil"
)

func main() {
	var (
		word       = flag.String("word", "", "word to enrich (required)")
		target     = flag.String("target", "", "target language code: en, es, de (required)")
		source     = flag.String("source", "", "source language code; detected when empty")
		configPath = flag.String("config", "", "path to YAML config; environment only when empty")
		asJSON     = flag.Bool("json", false, "print the artifact as JSON")
	)
	flag.Parse()

	req, err := buildRequest(*word, *target, *source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// No API Gateway here; app.New swaps in the logging broadcaster.
	cfg.Notify.WebSocketAPIEndpoint = ""

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ProcessingTimeout())
	defer cancel()
	ctx = ctxutil.WithRequestID(ctx, req.RequestID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	state := domain.NewState(req)
	a.Notifier.Publish(ctx, domain.ProcessingStarted(state))

	res, err := a.Engine.Run(ctx, state)
	if err != nil {
		a.Notifier.Publish(ctx, domain.ProcessingFailed(state, err.Error(), nil))
		logger.Error("enrichment failed", slog.String("word", req.Word), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := report(os.Stdout, res, *asJSON); err != nil {
		logger.Error("write result", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if res.Status == engine.StatusFailed {
		os.Exit(1)
	}
}

func buildRequest(word, target, source string) (domain.EnrichmentRequest, error) {
	req := domain.EnrichmentRequest{
		Word:           strings.TrimSpace(word),
		TargetLanguage: domain.Language(target),
		SourceLanguage: domain.Language(source),
		UserID:         "cli",
		RequestID:      uuid.NewString(),
	}
	switch {
	case req.Word == "":
		return req, fmt.Errorf("-word is required")
	case !req.TargetLanguage.IsValid():
		return req, fmt.Errorf("-target must be one of en, es, de")
	case req.SourceLanguage != "" && !req.SourceLanguage.IsValid():
		return req, fmt.Errorf("-source must be one of en, es, de")
	}
	return req, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadPath(path)
	}
	return config.Load()
}

func report(w io.Writer, res engine.Result, asJSON bool) error {
	switch res.Status {
	case engine.StatusCacheHit:
		if asJSON {
			return printJSON(w, res.Existing)
		}
		fmt.Fprintf(w, "already stored (%d %s):\n", len(res.Existing), plural(len(res.Existing), "entry", "entries"))
		for _, item := range res.Existing {
			fmt.Fprintf(w, "  %s -> %s\n", res.State.Word, item.TargetWord)
		}
		return nil
	case engine.StatusCompleted:
		if asJSON {
			return printJSON(w, res.Entry)
		}
		printEntry(w, res.Entry)
		return nil
	default:
		fmt.Fprintf(w, "failed: %s\n", res.Message)
		for _, s := range res.Suggestions {
			fmt.Fprintf(w, "  did you mean %q?\n", s)
		}
		return nil
	}
}

func printEntry(w io.Writer, e *domain.VocabEntry) {
	fmt.Fprintf(w, "%s (%s) -> %s (%s)\n", e.SourceWord, e.SourceLanguage, e.TargetWord, e.TargetLanguage)
	fmt.Fprintf(w, "  part of speech: %s\n", e.TargetPOS)
	if len(e.Syllables) > 0 {
		fmt.Fprintf(w, "  syllables:      %s\n", strings.Join(e.Syllables, "-"))
	}
	if len(e.SourceDef) > 0 {
		fmt.Fprintf(w, "  definition:     %s\n", e.SourceDef[0])
	}
	if e.Pronunciations != nil && e.Pronunciations.Audio != "" {
		fmt.Fprintf(w, "  audio:          %s\n", e.Pronunciations.Audio)
	}
	if e.Media != nil && e.Media.Src.Large2x != "" {
		fmt.Fprintf(w, "  image:          %s\n", e.Media.Src.Large2x)
	}
	fmt.Fprintf(w, "  examples: %d  synonyms: %d  quality: %.2f\n",
		len(e.Examples), len(e.Synonyms), e.OverallQualityScore)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
