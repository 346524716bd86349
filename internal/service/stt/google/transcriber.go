// Package google provides an stt.Transcriber backed by Google Cloud
// Speech-to-Text batch recognition with speaker diarization.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"voicedine-service/internal/service/stt"
)

// Transcriber implements stt.Transcriber using the synchronous Recognize
// API. Each flush window is short enough (seconds of audio) that batch
// recognition stays well under the one minute sync limit.
type Transcriber struct {
	client   *speech.Client
	language string
}

// New creates a Google STT transcriber. Credentials are resolved via
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, language string) (*Transcriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &Transcriber{client: c, language: language}, nil
}

// Name implements stt.Transcriber.
func (t *Transcriber) Name() string { return "google" }

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	language := req.Language
	if language == "" {
		language = t.language
	}

	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:       int32(req.SampleRate),
			LanguageCode:          language,
			EnableWordTimeOffsets: true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google: recognize: %w", err)
	}

	result := &stt.Result{}
	var texts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		texts = append(texts, r.Alternatives[0].Transcript)
	}
	result.Text = strings.TrimSpace(strings.Join(texts, " "))

	// With diarization enabled the last result carries the full word list
	// with speaker tags.
	if n := len(resp.Results); n > 0 {
		last := resp.Results[n-1]
		if len(last.Alternatives) > 0 {
			for _, w := range last.Alternatives[0].Words {
				if w.Word == "" {
					continue
				}
				result.Words = append(result.Words, stt.Word{
					Text:    w.Word,
					Speaker: int(w.SpeakerTag),
				})
			}
		}
	}
	return result, nil
}

// Close releases the underlying gRPC connection.
func (t *Transcriber) Close() error {
	return t.client.Close()
}
