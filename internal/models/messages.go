// Package models defines the wire and event types exchanged with clients
// and downstream consumers.
package models

import (
	"encoding/json"
	"fmt"
)

// Control message types accepted on the transcription WebSocket.
const (
	ControlConfig = "config"
	ControlCommit = "commit"
)

// Outbound message types emitted on the transcription WebSocket.
const (
	MessageTranscript = "transcript"
	MessageError      = "error"
)

// ControlMessage is an inbound text frame on the transcription WebSocket.
type ControlMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// ParseControl decodes a text frame into a ControlMessage. A missing type
// field is an error; callers ignore malformed control frames.
func ParseControl(data []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed control message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("control message missing type")
	}
	return &msg, nil
}

// TranscriptMessage is an outbound diarized transcript segment.
type TranscriptMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SpeakerID int    `json:"speaker_id"`
	IsFinal   bool   `json:"is_final"`
}

// ErrorMessage is an outbound error notification.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewTranscript builds the outbound message for one segment. All segments
// are final: partial results are not part of the protocol.
func NewTranscript(seg Segment) TranscriptMessage {
	return TranscriptMessage{
		Type:      MessageTranscript,
		Text:      seg.Text,
		SpeakerID: seg.Speaker,
		IsFinal:   true,
	}
}

// NewError builds an outbound error message.
func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: MessageError, Message: message}
}
