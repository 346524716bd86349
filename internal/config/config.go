// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// STT provider names accepted in STT_PROVIDER.
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderGoogle     = "google"
	ProviderMock       = "mock"
)

// Config holds all runtime configuration.
type Config struct {
	Env               string `env:"ENV" envDefault:"production"`
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	ObservabilityPort string `env:"OBSERVABILITY_PORT" envDefault:"9090"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`

	// Transcription.
	STTProvider      string        `env:"STT_PROVIDER" envDefault:"mock"`
	STTLanguage      string        `env:"STT_LANGUAGE" envDefault:"en"`
	ElevenLabsAPIKey string        `env:"ELEVENLABS_API_KEY"`
	SampleRate       int           `env:"TRANSCRIBE_SAMPLE_RATE" envDefault:"16000"`
	WindowSeconds    int           `env:"TRANSCRIBE_WINDOW_SEC" envDefault:"5"`
	MinCommitBytes   int           `env:"TRANSCRIBE_MIN_COMMIT_BYTES" envDefault:"1000"`
	CloseGrace       time.Duration `env:"TRANSCRIBE_CLOSE_GRACE" envDefault:"10s"`

	// Restaurant research and booking.
	ExaAPIKey             string `env:"EXA_API_KEY"`
	XAIAPIKey             string `env:"XAI_API_KEY"`
	BlandAPIKey           string `env:"BLAND_API_KEY"`
	BookingOverrideNumber string `env:"BOOKING_OVERRIDE_NUMBER"`

	// Event publishing.
	KafkaEnabled           bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicTranscripts  string   `env:"KAFKA_TOPIC_TRANSCRIPTS" envDefault:"voicedine.transcripts.final"`
	KafkaTopicRequirements string   `env:"KAFKA_TOPIC_REQUIREMENTS" envDefault:"voicedine.requirements.extracted"`
	ServicePrincipal       string   `env:"SERVICE_PRINCIPAL" envDefault:"svc-voicedine"`
}

// Load parses configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints not expressible as struct tags.
func (c *Config) Validate() error {
	switch c.STTProvider {
	case ProviderElevenLabs, ProviderGoogle, ProviderMock:
	default:
		return fmt.Errorf("unknown STT provider %q", c.STTProvider)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("window seconds must be positive, got %d", c.WindowSeconds)
	}
	if c.MinCommitBytes < 0 {
		return fmt.Errorf("min commit bytes must not be negative, got %d", c.MinCommitBytes)
	}
	if c.CloseGrace <= 0 {
		return fmt.Errorf("close grace must be positive, got %v", c.CloseGrace)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_ENABLED is set but KAFKA_BROKERS is empty")
	}
	return nil
}

// IsDev reports whether the service runs in a development environment.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development" || c.Env == "local"
}
