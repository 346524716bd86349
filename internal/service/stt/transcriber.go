// Package stt defines the contract for speech-to-text providers.
//
// Providers transcribe one bounded audio window per call. The session layer
// wraps buffered PCM into a WAV container, submits it here, and treats any
// failure as the loss of that single window: there is no retry policy at
// this level.
package stt

import "context"

// Request is one transcription call for a single flush window.
type Request struct {
	// Audio is a complete WAV container, header included.
	Audio []byte

	// SampleRate is the PCM sample rate in Hz, matching the container header.
	SampleRate int

	// Language is a BCP-47-ish language hint (e.g. "en"). Empty lets the
	// provider decide.
	Language string
}

// Word is a single transcribed word attributed to a speaker index. Speaker
// labels are normalized to plain integers at the provider boundary; the
// rest of the pipeline never sees provider-specific label formats.
type Word struct {
	Text    string
	Speaker int
}

// Result is a diarized transcription of one audio window. Words may be empty
// when the provider returns no word-level detail; Text then carries the flat
// transcript.
type Result struct {
	Text  string
	Words []Word
}

// Transcriber is implemented by each STT provider (ElevenLabs, Google, mock).
// Implementations must be safe for concurrent use: a single instance is
// shared read-only across all sessions.
type Transcriber interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Transcribe submits one audio window and blocks until the provider
	// returns a result or fails. Timeout and generic failures are treated
	// identically by callers.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
