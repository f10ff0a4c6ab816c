package config

import "time"

// Config is the root application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Notify  NotifyConfig  `yaml:"notify"`
	Quality QualityConfig `yaml:"quality"`
	LLM     LLMConfig     `yaml:"llm"`
	TTS     TTSConfig     `yaml:"tts"`
	Media   MediaConfig   `yaml:"media"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// StorageConfig holds DynamoDB table and S3 bucket names.
type StorageConfig struct {
	VocabTable       string `yaml:"vocab_table"       env:"VOCAB_TABLE_NAME"       env-required:"true"`
	ConnectionsTable string `yaml:"connections_table" env:"CONNECTIONS_TABLE_NAME" env-required:"true"`
	MediaBucket      string `yaml:"media_bucket"      env:"MEDIA_BUCKET_NAME"      env-required:"true"`
}

// QueueConfig holds SQS intake settings. Visibility extends beyond the
// processing deadline by the buffer so a live request is never redelivered.
type QueueConfig struct {
	URL                      string `yaml:"url"                        env:"QUEUE_URL"`
	ProcessingTimeoutSeconds int    `yaml:"processing_timeout_seconds" env:"PROCESSING_TIMEOUT_SECONDS" env-default:"90"`
	VisibilityBufferSeconds  int    `yaml:"visibility_buffer_seconds"  env:"VISIBILITY_BUFFER_SECONDS"  env-default:"120"`
	WaitTimeSeconds          int    `yaml:"wait_time_seconds"          env:"QUEUE_WAIT_TIME_SECONDS"    env-default:"20"`
	BatchSize                int    `yaml:"batch_size"                 env:"QUEUE_BATCH_SIZE"           env-default:"10"`
}

// ProcessingTimeout returns the per-request wall clock as a duration.
func (q QueueConfig) ProcessingTimeout() time.Duration {
	return time.Duration(q.ProcessingTimeoutSeconds) * time.Second
}

// VisibilityTimeout returns the message visibility to assert on receipt.
func (q QueueConfig) VisibilityTimeout() time.Duration {
	return time.Duration(q.ProcessingTimeoutSeconds+q.VisibilityBufferSeconds) * time.Second
}

// NotifyConfig holds the WebSocket management API settings. An empty endpoint
// disables broadcasting, which the one-shot CLI relies on.
type NotifyConfig struct {
	WebSocketAPIEndpoint string `yaml:"websocket_api_endpoint" env:"WEBSOCKET_API_ENDPOINT"`
}

// QualityConfig holds the supervisor's gate parameters.
type QualityConfig struct {
	Threshold     float64 `yaml:"threshold"       env:"QUALITY_THRESHOLD"     env-default:"8.0"`
	MaxRetries    int     `yaml:"max_retries"     env:"MAX_RETRIES"           env-default:"2"`
	AcceptOnFinal float64 `yaml:"accept_on_final" env:"ACCEPT_ON_FINAL"       env-default:"7.25"`
	SkipToolsRaw  string  `yaml:"skip_tools"      env:"SKIP_VALIDATION_TOOLS" env-default:"pronunciation"`

	// SkipTools is parsed from SkipToolsRaw during validation.
	SkipTools []string `yaml:"-" env:"-"`
}

// LLMConfig holds gateway routing and provider credentials.
type LLMConfig struct {
	Provider        string        `yaml:"provider"          env:"LLM_PROVIDER"         env-default:"anthropic"`
	ExecutorModel   string        `yaml:"executor_model"    env:"LLM_EXECUTOR_MODEL"   env-default:"claude-3-5-haiku-latest"`
	SupervisorModel string        `yaml:"supervisor_model"  env:"LLM_SUPERVISOR_MODEL" env-default:"claude-sonnet-4-20250514"`
	MaxTokens       int           `yaml:"max_tokens"        env:"LLM_MAX_TOKENS"       env-default:"4096"`
	Timeout         time.Duration `yaml:"timeout"           env:"LLM_TIMEOUT"          env-default:"60s"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"    env:"OPENAI_API_KEY"`
}

// TTSConfig holds text-to-speech provider settings and audio size gates.
type TTSConfig struct {
	APIKey        string `yaml:"api_key"         env:"TTS_API_KEY"`
	BaseURL       string `yaml:"base_url"        env:"TTS_BASE_URL"    env-default:"https://api.elevenlabs.io"`
	VoiceID       string `yaml:"voice_id"        env:"TTS_VOICE_ID"    env-default:"JBFqnCBsd6RMkjVDRZzb"`
	ModelID       string `yaml:"model_id"        env:"TTS_MODEL_ID"    env-default:"eleven_multilingual_v2"`
	MinAudioBytes int64  `yaml:"min_audio_bytes" env:"MIN_AUDIO_BYTES" env-default:"1024"`
	MaxAudioBytes int64  `yaml:"max_audio_bytes" env:"MAX_AUDIO_BYTES" env-default:"5242880"`
}

// MediaConfig holds image search provider settings.
type MediaConfig struct {
	PexelsAPIKey  string `yaml:"pexels_api_key"  env:"PEXELS_API_KEY"`
	PexelsBaseURL string `yaml:"pexels_base_url" env:"PEXELS_BASE_URL" env-default:"https://api.pexels.com"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// TracingConfig gates the OpenTelemetry meter provider.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
}
