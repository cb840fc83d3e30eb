package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Transcription providers understood by STT_PROVIDER.
const (
	ProviderDeepgram = "deepgram"
	ProviderWhisper  = "whisper"
	ProviderHTTP     = "http"
)

// Config holds all configuration for the speech analysis service
type Config struct {
	// Server configuration
	Port        string `envconfig:"PORT" default:"8080"`
	MaxUploadMB int    `envconfig:"MAX_UPLOAD_MB" default:"50"`
	MaxWorkers  int    `envconfig:"MAX_WORKERS" default:"4"` // Analysis tasks run concurrently per request

	// Transcription configuration
	STTProvider              string `envconfig:"STT_PROVIDER" default:"deepgram"` // deepgram, whisper, http
	TranscriptionLanguage    string `envconfig:"TRANSCRIPTION_LANGUAGE" default:"ko-KR"`
	TranscriptionTimeout     int    `envconfig:"TRANSCRIPTION_TIMEOUT" default:"60"`       // seconds
	TranscriptionMaxInFlight int    `envconfig:"TRANSCRIPTION_MAX_CONCURRENT" default:"8"` // Provider requests in flight

	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:"whisper-1"`

	STTServiceURL string `envconfig:"STT_SERVICE_URL"` // Base URL of a self-hosted ASR service

	// Signal analysis configuration
	SilenceTopDB     float64 `envconfig:"SILENCE_TOP_DB" default:"40"`       // dB below peak treated as silence
	OnsetHopLength   int     `envconfig:"ONSET_HOP_LENGTH" default:"512"`    // samples
	PitchHopLength   int     `envconfig:"PITCH_HOP_LENGTH" default:"256"`    // samples
	PitchFrameLength int     `envconfig:"PITCH_FRAME_LENGTH" default:"2048"` // samples
	PitchMinHz       float64 `envconfig:"PITCH_MIN_HZ" default:"65.406"`     // C2
	PitchMaxHz       float64 `envconfig:"PITCH_MAX_HZ" default:"2093.005"`   // C7

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from the environment. A .env file and the YAML
// file named by CONFIG_FILE are consulted first; neither overrides variables
// that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path); err != nil {
			return nil, err
		}
	}

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without consulting any file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile reads a flat YAML mapping of environment keys and exports every
// key that is not already present in the environment.
func loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for key, value := range values {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to export %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks provider credentials and analysis parameters.
func (c *Config) Validate() error {
	switch c.STTProvider {
	case ProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required")
		}
	case ProviderWhisper:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderHTTP:
		if c.STTServiceURL == "" {
			return fmt.Errorf("STT_SERVICE_URL is required")
		}
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STTProvider)
	}

	if c.OnsetHopLength <= 0 || c.PitchHopLength <= 0 {
		return fmt.Errorf("hop lengths must be positive")
	}
	if c.PitchFrameLength <= c.PitchHopLength {
		return fmt.Errorf("PITCH_FRAME_LENGTH must exceed PITCH_HOP_LENGTH")
	}
	if c.PitchMinHz <= 0 || c.PitchMaxHz <= c.PitchMinHz {
		return fmt.Errorf("invalid pitch range %.3f..%.3f Hz", c.PitchMinHz, c.PitchMaxHz)
	}
	if c.SilenceTopDB <= 0 {
		return fmt.Errorf("SILENCE_TOP_DB must be positive")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("MAX_WORKERS must be at least 1")
	}
	return nil
}

// TranscriptionTimeoutDuration returns the per-call transcription timeout.
func (c *Config) TranscriptionTimeoutDuration() time.Duration {
	return time.Duration(c.TranscriptionTimeout) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
