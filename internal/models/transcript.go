package models

// Segment is a maximal run of words attributed to one speaker, merged into a
// single text unit. It is the unit pushed to the client and published
// downstream.
type Segment struct {
	Text    string
	Speaker int
}

// TranscriptFinalEvent is published for every segment emitted to a client.
type TranscriptFinalEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Sequence  uint64 `json:"sequence"`
	Text      string `json:"text"`
	SpeakerID int    `json:"speakerId"`
	Timestamp int64  `json:"timestamp"`
}

// RequirementsExtractedEvent is published after a successful requirement
// extraction over a conversation transcript.
type RequirementsExtractedEvent struct {
	EventType    string   `json:"eventType"`
	RequestID    string   `json:"requestId"`
	Requirements []string `json:"requirements"`
	Timestamp    int64    `json:"timestamp"`
}

// Event type identifiers used as Kafka message headers and payload tags.
const (
	EventTranscriptFinal       = "restaurant.transcript.final"
	EventRequirementsExtracted = "restaurant.requirements.extracted"
)
