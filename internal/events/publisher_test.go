package events

import (
	"context"
	"testing"
	"time"

	"voicedine-service/internal/models"
)

func TestNewDisabledPublisher(t *testing.T) {
	p := New(&Config{Enabled: false})
	if p == nil {
		t.Fatal("expected publisher, got nil")
	}
	if p.enabled {
		t.Error("expected publisher to be disabled")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}

func TestNewNilConfig(t *testing.T) {
	p := New(nil)
	if p == nil {
		t.Fatal("expected publisher, got nil")
	}
	if p.enabled {
		t.Error("expected publisher to be disabled")
	}
}

func TestNewEmptyBrokers(t *testing.T) {
	p := New(&Config{Enabled: true, Brokers: nil})
	if p.enabled {
		t.Error("expected publisher with no brokers to be disabled")
	}
}

func TestDisabledPublishSucceeds(t *testing.T) {
	p := New(&Config{
		Enabled:           false,
		TopicTranscripts:  "voicedine.transcripts.final",
		TopicRequirements: "voicedine.requirements.extracted",
		Principal:         "svc-voicedine",
	})

	event := models.TranscriptFinalEvent{
		EventType: models.EventTranscriptFinal,
		SessionID: "session-1",
		Sequence:  1,
		Text:      "a quiet bistro near the river",
		SpeakerID: 0,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := p.PublishTranscript(context.Background(), event.SessionID, event); err != nil {
		t.Errorf("PublishTranscript() on disabled publisher: %v", err)
	}

	req := models.RequirementsExtractedEvent{
		EventType:    models.EventRequirementsExtracted,
		RequestID:    "req-1",
		Requirements: []string{"outdoor seating", "vegetarian options"},
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := p.PublishRequirements(context.Background(), req.RequestID, req); err != nil {
		t.Errorf("PublishRequirements() on disabled publisher: %v", err)
	}
}

func TestPublishUnmarshalableEvent(t *testing.T) {
	p := New(&Config{Enabled: false, TopicTranscripts: "t"})
	if err := p.PublishTranscript(context.Background(), "k", func() {}); err == nil {
		t.Error("expected marshal error for unserializable event")
	}
}

func TestEnabledPublisherBuildsWriters(t *testing.T) {
	p := New(&Config{
		Enabled:           true,
		Brokers:           []string{"localhost:9092"},
		TopicTranscripts:  "voicedine.transcripts.final",
		TopicRequirements: "voicedine.requirements.extracted",
		Principal:         "svc-voicedine",
	})
	if !p.enabled {
		t.Error("expected publisher to be enabled")
	}
	if p.writerTranscripts == nil || p.writerRequirements == nil {
		t.Error("expected both writers to be initialized")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}
