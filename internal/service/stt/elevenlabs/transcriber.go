// Package elevenlabs provides an stt.Transcriber backed by the ElevenLabs
// Scribe speech-to-text API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"voicedine-service/internal/service/diarize"
	"voicedine-service/internal/service/stt"
)

const (
	defaultEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultModel    = "scribe_v2"
	defaultTimeout  = 30 * time.Second
)

// Option is a functional option for the Transcriber.
type Option func(*Transcriber)

// WithModel sets the Scribe model ID.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(t *Transcriber) {
		t.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		t.httpClient = c
	}
}

// Transcriber implements stt.Transcriber using ElevenLabs Scribe with
// diarization and word-level detail enabled.
type Transcriber struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// New creates a Scribe transcriber. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	t := &Transcriber{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Name implements stt.Transcriber.
func (t *Transcriber) Name() string { return "elevenlabs" }

// scribeWord mirrors one entry of the Scribe words array. SpeakerID is
// decoded loosely: the API has returned both integers and "speaker_<N>"
// strings across versions.
type scribeWord struct {
	Text      string `json:"text"`
	Type      string `json:"type"`
	SpeakerID any    `json:"speaker_id"`
}

type scribeResponse struct {
	Text  string       `json:"text"`
	Words []scribeWord `json:"words"`
}

// Transcribe implements stt.Transcriber. The audio is uploaded as a WAV
// file via multipart form data.
func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"model_id":      t.model,
		"language_code": req.Language,
		"diarize":       "true",
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("elevenlabs: write field %s: %w", k, err)
		}
	}

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("elevenlabs: write audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs: close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", t.apiKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("elevenlabs: http %d: %s", resp.StatusCode, string(b))
	}

	var sr scribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("elevenlabs: decode response: %w", err)
	}

	result := &stt.Result{Text: sr.Text}
	for _, w := range sr.Words {
		// Scribe interleaves "spacing" entries between words.
		if w.Type == "spacing" || w.Text == "" {
			continue
		}
		result.Words = append(result.Words, stt.Word{
			Text:    w.Text,
			Speaker: diarize.SpeakerIndex(w.SpeakerID),
		})
	}
	return result, nil
}
