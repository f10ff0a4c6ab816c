package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/otel"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/apigw"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo/connection"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo/vocab"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/provider/elevenlabs"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/provider/pexels"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/s3"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/sqs"
	"github.com/heartmarshall/vocab-enricher/internal/config"
	"github.com/heartmarshall/vocab-enricher/internal/engine"
	"github.com/heartmarshall/vocab-enricher/internal/intake"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
	"github.com/heartmarshall/vocab-enricher/internal/observe"
	"github.com/heartmarshall/vocab-enricher/internal/service/audio"
	"github.com/heartmarshall/vocab-enricher/internal/service/media"
	"github.com/heartmarshall/vocab-enricher/internal/service/notify"
	"github.com/heartmarshall/vocab-enricher/internal/supervisor"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

// App bundles the long-lived pieces of one process: the engine with its
// full tool set, the notifier, and (in worker mode) the queue consumer.
type App struct {
	Cfg      *config.Config
	Log      *slog.Logger
	Engine   *engine.Engine
	Notifier engine.Publisher
	Metrics  *observe.Metrics
	Queue    *sqs.Consumer
}

// Run is the worker entry point. It loads configuration, builds the
// pipeline, and long-polls the queue until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting worker",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if cfg.Queue.URL == "" {
		return fmt.Errorf("QUEUE_URL is required in worker mode")
	}

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	worker := intake.New(logger, a.Queue, a.Engine, a.Notifier, cfg.Queue.ProcessingTimeout())
	return worker.Run(ctx)
}

// New builds the enrichment pipeline from configuration. Events go to the
// WebSocket notifier when an endpoint is configured and to the log otherwise,
// which is how the one-shot CLI runs without an API Gateway.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	metrics := observe.NewNopMetrics()
	if cfg.Tracing.Enabled {
		// The exporting provider is registered by the runtime environment;
		// without one the global falls back to no-op.
		if metrics, err = observe.NewMetrics(otel.GetMeterProvider()); err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}

	dyn := dynamodb.NewFromConfig(awsCfg)
	vocabRepo := vocab.New(dyn, cfg.Storage.VocabTable, log)
	blobs := s3.New(awss3.NewFromConfig(awsCfg), cfg.Storage.MediaBucket, awsCfg.Region, log)

	gateway := llm.NewGateway(log, newBinding(cfg.LLM, awsCfg), cfg.LLM, metrics)

	photos := pexels.NewProviderWithURL(cfg.Media.PexelsAPIKey, cfg.Media.PexelsBaseURL, log)
	tts := elevenlabs.NewProviderWithURL(cfg.TTS.APIKey, cfg.TTS.BaseURL, cfg.TTS.VoiceID, cfg.TTS.ModelID, log)

	mediaSvc := media.NewService(log, gateway, vocabRepo, photos, blobs, metrics)
	audioSvc := audio.NewService(log, tts, blobs, cfg.TTS.MinAudioBytes, cfg.TTS.MaxAudioBytes)

	tools := []tool.Tool{
		tool.NewValidation(gateway),
		tool.NewClassification(log, gateway, vocabRepo),
		tool.NewTranslation(gateway),
		tool.NewSynonyms(gateway),
		tool.NewExamples(gateway),
		tool.NewSyllables(gateway),
		tool.NewConjugation(gateway),
		tool.NewMedia(mediaSvc),
		tool.NewPronunciation(audioSvc),
	}

	var notifier engine.Publisher = notify.NewLogging(log)
	if cfg.Notify.WebSocketAPIEndpoint != "" {
		conns := connection.New(dyn, cfg.Storage.ConnectionsTable, log)
		poster := apigw.NewFromEndpoint(awsCfg, cfg.Notify.WebSocketAPIEndpoint, log)
		notifier = notify.NewService(log, conns, poster)
	}

	eng := engine.Build(engine.Deps{
		Log:        log,
		Supervisor: supervisor.New(log, gateway, cfg.Quality, tools),
		Tools:      tools,
		Store:      vocabRepo,
		Publisher:  notifier,
		Metrics:    metrics,
	})

	a := &App{Cfg: cfg, Log: log, Engine: eng, Notifier: notifier, Metrics: metrics}
	if cfg.Queue.URL != "" {
		a.Queue = sqs.NewConsumer(
			awssqs.NewFromConfig(awsCfg),
			cfg.Queue.URL,
			cfg.Queue.VisibilityTimeout(),
			time.Duration(cfg.Queue.WaitTimeSeconds)*time.Second,
			cfg.Queue.BatchSize,
			log,
		)
	}
	return a, nil
}

func newBinding(cfg config.LLMConfig, awsCfg aws.Config) llm.Binding {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIBinding(cfg.OpenAIAPIKey)
	case "bedrock":
		return llm.NewBedrockBinding(bedrockruntime.NewFromConfig(awsCfg))
	default:
		return llm.NewAnthropicBinding(cfg.AnthropicAPIKey)
	}
}
