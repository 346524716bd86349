package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"voicedine-service/internal/api/httpapi"
	"voicedine-service/internal/api/ws"
	"voicedine-service/internal/app"
	"voicedine-service/internal/config"
	"voicedine-service/internal/events"
	"voicedine-service/internal/observability"
	"voicedine-service/internal/service/audio"
	"voicedine-service/internal/service/booking"
	"voicedine-service/internal/service/extract"
	"voicedine-service/internal/service/search"
	"voicedine-service/internal/service/stt"
	"voicedine-service/internal/service/stt/elevenlabs"
	"voicedine-service/internal/service/stt/google"
	"voicedine-service/internal/service/stt/mock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	// Metrics and health endpoints on a separate port.
	obs := observability.NewServer(":" + cfg.ObservabilityPort)
	obs.Start()

	publisher := events.New(&events.Config{
		Enabled:           cfg.KafkaEnabled,
		Brokers:           cfg.KafkaBrokers,
		TopicTranscripts:  cfg.KafkaTopicTranscripts,
		TopicRequirements: cfg.KafkaTopicRequirements,
		Principal:         cfg.ServicePrincipal,
	})
	defer publisher.Close()

	transcriber := buildTranscriber(cfg)
	if closer, ok := transcriber.(io.Closer); ok {
		defer closer.Close()
	}

	sessionCfg := audio.DefaultConfig()
	sessionCfg.SampleRate = cfg.SampleRate
	sessionCfg.WindowSeconds = cfg.WindowSeconds
	sessionCfg.MinCommitBytes = cfg.MinCommitBytes
	sessionCfg.CloseGrace = cfg.CloseGrace
	sessionCfg.Language = cfg.STTLanguage

	wsHandler := ws.NewHandler(sessionCfg, transcriber, publisher)

	router := httpapi.NewRouter(httpapi.Deps{
		Search:    buildSearch(cfg),
		Extract:   buildExtractor(cfg),
		Booking:   buildBooking(cfg),
		Publisher: publisher,
		WS:        wsHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("VoiceDine service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
	application.Shutdown()
}

// buildTranscriber constructs the configured STT provider. Returns nil when
// credentials are missing so the WebSocket handler can refuse sessions with
// an explicit error instead of the process failing closed.
func buildTranscriber(cfg *config.Config) stt.Transcriber {
	switch cfg.STTProvider {
	case config.ProviderElevenLabs:
		t, err := elevenlabs.New(cfg.ElevenLabsAPIKey)
		if err != nil {
			log.Error().Err(err).Msg("ElevenLabs transcriber unavailable")
			return nil
		}
		return t
	case config.ProviderGoogle:
		t, err := google.New(context.Background(), cfg.STTLanguage)
		if err != nil {
			log.Error().Err(err).Msg("Google transcriber unavailable")
			return nil
		}
		return t
	default:
		log.Warn().Msg("Using mock transcriber; set STT_PROVIDER for real transcription")
		return mock.New()
	}
}

func buildSearch(cfg *config.Config) *search.Client {
	if cfg.ExaAPIKey == "" {
		log.Warn().Msg("EXA_API_KEY not set; restaurant search disabled")
		return nil
	}
	c, err := search.New(cfg.ExaAPIKey)
	if err != nil {
		log.Error().Err(err).Msg("Search client unavailable")
		return nil
	}
	return c
}

func buildExtractor(cfg *config.Config) *extract.Extractor {
	if cfg.XAIAPIKey == "" {
		log.Warn().Msg("XAI_API_KEY not set; requirement extraction disabled")
		return nil
	}
	e, err := extract.New(cfg.XAIAPIKey)
	if err != nil {
		log.Error().Err(err).Msg("Extractor unavailable")
		return nil
	}
	return e
}

func buildBooking(cfg *config.Config) *booking.Client {
	if cfg.BlandAPIKey == "" {
		log.Warn().Msg("BLAND_API_KEY not set; booking disabled")
		return nil
	}
	c, err := booking.New(cfg.BlandAPIKey, cfg.BookingOverrideNumber)
	if err != nil {
		log.Error().Err(err).Msg("Booking client unavailable")
		return nil
	}
	return c
}
