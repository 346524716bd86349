// Package httpapi wires the REST endpoints and the transcription WebSocket
// into one router.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"voicedine-service/internal/events"
	"voicedine-service/internal/models"
	"voicedine-service/internal/service/booking"
	"voicedine-service/internal/service/extract"
	"voicedine-service/internal/service/search"
)

// Deps carries the router's collaborators. Search, Extract and Booking may
// be nil when their API keys are not configured; the matching endpoints then
// answer 503.
type Deps struct {
	Search    *search.Client
	Extract   *extract.Extractor
	Booking   *booking.Client
	Publisher *events.Publisher
	WS        http.Handler
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	if deps.WS != nil {
		r.Get("/ws/transcribe", deps.WS.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/research/sync", handleResearch(deps.Search))
		r.Post("/requirements/extract", handleExtract(deps.Extract, deps.Publisher))
		r.Post("/booking", handleBooking(deps.Booking))
	})

	return r
}

func handleResearch(client *search.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			writeError(w, http.StatusServiceUnavailable, "restaurant search is not configured")
			return
		}

		var req models.ResearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Prompt == "" {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		restaurants, err := client.FastSearch(r.Context(), req.Prompt, req.NumResults)
		if err != nil {
			if errors.Is(err, search.ErrTimeout) {
				writeError(w, http.StatusGatewayTimeout, err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, restaurants)
	}
}

func handleExtract(extractor *extract.Extractor, publisher *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if extractor == nil {
			writeError(w, http.StatusServiceUnavailable, "requirement extraction is not configured")
			return
		}

		var req models.ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var (
			requirements []string
			err          error
		)
		if len(req.ExistingRequirements) > 0 {
			requirements, err = extractor.RequirementsWithContext(r.Context(), req.Transcript, req.ExistingRequirements)
		} else {
			requirements, err = extractor.Requirements(r.Context(), req.Transcript)
		}
		if err != nil {
			// Extraction failures are soft: the client gets an empty list
			// with the error attached rather than an HTTP error.
			writeJSON(w, http.StatusOK, models.ExtractResponse{
				Requirements: []string{},
				Success:      false,
				Error:        err.Error(),
			})
			return
		}
		if requirements == nil {
			requirements = []string{}
		}

		if publisher != nil && len(requirements) > 0 {
			requestId := middleware.GetReqID(r.Context())
			ev := models.RequirementsExtractedEvent{
				EventType:    models.EventRequirementsExtracted,
				RequestID:    requestId,
				Requirements: requirements,
				Timestamp:    time.Now().UnixMilli(),
			}
			if err := publisher.PublishRequirements(context.WithoutCancel(r.Context()), requestId, ev); err != nil {
				log.Error().Err(err).Msg("Failed to publish requirements event")
			}
		}

		writeJSON(w, http.StatusOK, models.ExtractResponse{
			Requirements: requirements,
			Success:      true,
		})
	}
}

func handleBooking(client *booking.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			writeError(w, http.StatusServiceUnavailable, "booking is not configured")
			return
		}

		var req models.BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.RestaurantName == "" {
			writeError(w, http.StatusBadRequest, "restaurant_name is required")
			return
		}

		result, err := client.TriggerCall(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": result})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
