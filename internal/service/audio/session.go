// Package audio manages the per-connection transcription session: it buffers
// PCM frames, cuts them into fixed-size windows and hands each window to a
// single worker goroutine that calls the speech-to-text provider off the
// receive path.
package audio

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"voicedine-service/internal/events"
	"voicedine-service/internal/models"
	"voicedine-service/internal/observability/metrics"
	"voicedine-service/internal/service/diarize"
	"voicedine-service/internal/service/stt"
	"voicedine-service/internal/service/wav"
)

// Flush triggers, recorded on the flush counter.
const (
	TriggerWindow = "window"
	TriggerCommit = "commit"
	TriggerClose  = "close"
)

// Config holds audio format and flush tuning for a session.
type Config struct {
	SampleRate     int           // Hz, client-negotiable via the config message
	Channels       int           // mono by default
	SampleWidth    int           // bytes per sample (16-bit PCM = 2)
	WindowSeconds  int           // flush window duration
	MinCommitBytes int           // commits below this are discarded
	Language       string        // BCP-47-ish language hint for the provider
	CloseGrace     time.Duration // max wait for in-flight flushes on close
	STTTimeout     time.Duration // per-window provider call timeout
}

// DefaultConfig returns the standard session configuration:
// 16kHz 16-bit mono PCM with 5-second flush windows.
func DefaultConfig() Config {
	return Config{
		SampleRate:     16000,
		Channels:       1,
		SampleWidth:    2,
		WindowSeconds:  5,
		MinCommitBytes: 1000,
		Language:       "en",
		CloseGrace:     10 * time.Second,
		STTTimeout:     30 * time.Second,
	}
}

// FlushThreshold returns the window size in bytes of raw PCM.
func (c Config) FlushThreshold() int {
	return c.SampleRate * c.Channels * c.SampleWidth * c.WindowSeconds
}

// EmitFunc delivers an outbound message to the client. Implementations must
// be safe for use from the session worker goroutine.
type EmitFunc func(msg any) error

// Session owns the audio buffer and flush pipeline for one connection.
//
// Concurrency model: Append, Commit and Close must be called from a single
// goroutine (the connection read loop), which owns the buffer. Flushed
// windows are handed to exactly one worker goroutine through a channel of
// capacity one, so provider calls never overlap and transcripts are emitted
// in buffer order. A full channel blocks the read loop, which is the
// intended backpressure.
type Session struct {
	id          string
	cfg         Config
	lifecycle   *Lifecycle
	transcriber stt.Transcriber
	publisher   *events.Publisher
	emit        EmitFunc
	metrics     *metrics.Metrics

	buf  []byte
	jobs chan flushJob
	done chan struct{}

	seq     uint64 // worker-only
	started time.Time
}

type flushJob struct {
	data    []byte
	trigger string
}

// NewSession creates a session and starts its flush worker.
func NewSession(id string, cfg Config, transcriber stt.Transcriber, publisher *events.Publisher, emit EmitFunc) *Session {
	s := &Session{
		id:          id,
		cfg:         cfg,
		lifecycle:   NewLifecycle(id),
		transcriber: transcriber,
		publisher:   publisher,
		emit:        emit,
		metrics:     metrics.DefaultMetrics,
		jobs:        make(chan flushJob, 1),
		done:        make(chan struct{}),
		started:     time.Now(),
	}
	s.metrics.RecordSessionStart()
	go s.worker()
	return s
}

// Configure applies the client's config message and moves the session into
// the streaming state. A non-positive sample rate keeps the default.
func (s *Session) Configure(sampleRate int) error {
	if err := s.lifecycle.Configure(); err != nil {
		return err
	}
	if sampleRate > 0 {
		s.cfg.SampleRate = sampleRate
	}
	log.Info().
		Str("sessionId", s.id).
		Int("sampleRate", s.cfg.SampleRate).
		Int("flushThreshold", s.cfg.FlushThreshold()).
		Msg("Session configured")
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// BufferedBytes returns the number of unflushed bytes. Must be called from
// the goroutine that owns the buffer.
func (s *Session) BufferedBytes() int {
	return len(s.buf)
}

// Append buffers a binary audio frame. Audio on a fresh session starts
// streaming with the default sample rate; the config message is optional.
// When the buffer reaches the flush threshold, exact threshold-sized windows
// are cut and enqueued; any remainder stays buffered for the next window.
func (s *Session) Append(data []byte) error {
	if err := s.lifecycle.AcceptInput(); err != nil {
		return err
	}

	s.buf = append(s.buf, data...)
	s.metrics.RecordAudioReceived(len(data))

	threshold := s.cfg.FlushThreshold()
	for len(s.buf) >= threshold {
		window := make([]byte, threshold)
		copy(window, s.buf[:threshold])
		s.buf = s.buf[threshold:]
		s.enqueue(flushJob{data: window, trigger: TriggerWindow})
	}
	return nil
}

// Commit flushes whatever is buffered, if it is large enough to be worth a
// provider call. Undersized buffers are discarded without a flush and
// without any outbound message.
func (s *Session) Commit() error {
	if err := s.lifecycle.AcceptInput(); err != nil {
		return err
	}

	if len(s.buf) == 0 {
		return nil
	}
	if len(s.buf) < s.cfg.MinCommitBytes {
		log.Debug().
			Str("sessionId", s.id).
			Int("bytes", len(s.buf)).
			Int("minCommitBytes", s.cfg.MinCommitBytes).
			Msg("Commit below minimum, discarding buffer")
		s.metrics.RecordCommitDiscarded()
		s.buf = nil
		return nil
	}

	window := s.buf
	s.buf = nil
	s.enqueue(flushJob{data: window, trigger: TriggerCommit})
	return nil
}

// Close drains the session: any sufficiently large remainder is flushed
// best-effort, then the worker is given a bounded grace period to finish
// in-flight provider calls. Idempotent.
func (s *Session) Close() {
	if !s.lifecycle.BeginClose() {
		return
	}

	if len(s.buf) >= s.cfg.MinCommitBytes {
		window := s.buf
		s.buf = nil
		s.enqueue(flushJob{data: window, trigger: TriggerClose})
	} else if len(s.buf) > 0 {
		s.metrics.RecordCommitDiscarded()
		s.buf = nil
	}
	close(s.jobs)

	select {
	case <-s.done:
	case <-time.After(s.cfg.CloseGrace):
		log.Warn().
			Str("sessionId", s.id).
			Dur("grace", s.cfg.CloseGrace).
			Msg("Close grace expired with flush still in flight")
	}

	s.lifecycle.Finish()
	s.metrics.RecordSessionEnd(time.Since(s.started).Seconds())
	log.Info().
		Str("sessionId", s.id).
		Uint64("segments", s.seq).
		Msg("Session closed")
}

func (s *Session) enqueue(job flushJob) {
	s.metrics.RecordFlush(job.trigger)
	s.jobs <- job
}

func (s *Session) worker() {
	defer close(s.done)
	for job := range s.jobs {
		s.process(job)
	}
}

// process runs one flush: container encode, provider call, diarized
// segmentation, emission. A provider failure drops this window only: no
// message is emitted for it and the session keeps streaming.
func (s *Session) process(job flushJob) {
	container := wav.Encode(job.data, s.cfg.SampleRate, s.cfg.Channels, s.cfg.SampleWidth)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.STTTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.transcriber.Transcribe(ctx, stt.Request{
		Audio:      container,
		SampleRate: s.cfg.SampleRate,
		Language:   s.cfg.Language,
	})
	s.metrics.RecordSTTLatency(s.transcriber.Name(), time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordFlushFailure(s.transcriber.Name())
		log.Error().
			Err(err).
			Str("sessionId", s.id).
			Str("provider", s.transcriber.Name()).
			Str("trigger", job.trigger).
			Int("bytes", len(job.data)).
			Msg("Transcription failed, dropping window")
		return
	}

	segments := diarize.Segment(result.Words, result.Text)
	if len(segments) == 0 {
		return
	}

	for _, seg := range segments {
		s.seq++
		if err := s.emit(models.NewTranscript(seg)); err != nil {
			log.Debug().
				Err(err).
				Str("sessionId", s.id).
				Msg("Failed to deliver transcript to client")
		}
		ev := models.TranscriptFinalEvent{
			EventType: models.EventTranscriptFinal,
			SessionID: s.id,
			Sequence:  s.seq,
			Text:      seg.Text,
			SpeakerID: seg.Speaker,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := s.publisher.PublishTranscript(ctx, s.id, ev); err != nil {
			log.Error().
				Err(err).
				Str("sessionId", s.id).
				Msg("Failed to publish transcript event")
		}
	}
	s.metrics.RecordSegmentsEmitted(len(segments))
}
