// Package events publishes transcript and requirement events to Kafka for
// downstream consumers. Publishing is fire-and-forget: the service keeps no
// durable transcript state of its own.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voicedine-service/internal/observability/metrics"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Enabled           bool
	Brokers           []string
	TopicTranscripts  string
	TopicRequirements string
	Principal         string
}

// Publisher writes final transcript segments and extracted requirements to
// separate Kafka topics. When disabled it degrades to log-only mode, so
// callers never need to nil-check.
type Publisher struct {
	writerTranscripts  *kafka.Writer
	writerRequirements *kafka.Writer
	principal          string
	topicTranscripts   string
	topicRequirements  string
	enabled            bool
	metrics            *metrics.Metrics
}

// New creates a Kafka event publisher. A nil config, Enabled=false or an
// empty broker list all produce a disabled log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:         cfg.Principal,
			topicTranscripts:  cfg.TopicTranscripts,
			topicRequirements: cfg.TopicRequirements,
			enabled:           false,
			metrics:           m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscripts", cfg.TopicTranscripts).
		Str("topicRequirements", cfg.TopicRequirements).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscripts:  newWriter(cfg.TopicTranscripts),
		writerRequirements: newWriter(cfg.TopicRequirements),
		principal:          cfg.Principal,
		topicTranscripts:   cfg.TopicTranscripts,
		topicRequirements:  cfg.TopicRequirements,
		enabled:            true,
		metrics:            m,
	}
}

// PublishTranscript publishes a final transcript segment event, keyed by
// session ID.
func (p *Publisher) PublishTranscript(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranscripts, p.topicTranscripts, key, event)
}

// PublishRequirements publishes a requirements-extracted event, keyed by
// request ID.
func (p *Publisher) PublishRequirements(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerRequirements, p.topicRequirements, key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscripts != nil {
		if e := p.writerTranscripts.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcripts writer")
			err = e
		}
	}
	if p.writerRequirements != nil {
		if e := p.writerRequirements.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing requirements writer")
			err = e
		}
	}
	return err
}
