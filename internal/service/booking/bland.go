// Package booking places outbound reservation calls through the Bland AI
// calling API. The call agent runs a scripted French-speaking persona that
// books a table for two at 8pm.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"voicedine-service/internal/models"
)

const (
	defaultEndpoint = "https://api.bland.ai/v1/calls"
	defaultTimeout  = 30 * time.Second

	callLanguage    = "fr"
	callMaxDuration = 5 // minutes
)

// Option configures the client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client triggers reservation calls via Bland AI.
type Client struct {
	apiKey         string
	endpoint       string
	overrideNumber string
	http           *http.Client
}

// New creates a booking client. overrideNumber, when set, replaces the
// requested destination so demo calls never dial a real restaurant.
func New(apiKey, overrideNumber string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("booking: API key is required")
	}
	c := &Client{
		apiKey:         apiKey,
		endpoint:       defaultEndpoint,
		overrideNumber: overrideNumber,
		http:           &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type callRequest struct {
	PhoneNumber     string `json:"phone_number"`
	Task            string `json:"task"`
	Language        string `json:"language"`
	ReduceLatency   bool   `json:"reduce_latency"`
	MaxDuration     int    `json:"max_duration"`
	Record          bool   `json:"record"`
	FirstSentence   string `json:"first_sentence"`
	WaitForGreeting bool   `json:"wait_for_greeting"`
}

type callResponse struct {
	Status string `json:"status"`
	CallID string `json:"call_id"`
}

// TriggerCall starts an outbound reservation call for the given restaurant.
func (c *Client) TriggerCall(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error) {
	toNumber := req.PhoneNumber
	if c.overrideNumber != "" {
		toNumber = c.overrideNumber
	}
	if toNumber == "" {
		return nil, errors.New("booking: no destination number")
	}

	payload := callRequest{
		PhoneNumber:     toNumber,
		Task:            taskPrompt(req.RestaurantName),
		Language:        callLanguage,
		ReduceLatency:   true,
		MaxDuration:     callMaxDuration,
		Record:          true,
		FirstSentence:   fmt.Sprintf("Bonjour? Est-ce que c'est le %s? J'aimerais réserver une table.", req.RestaurantName),
		WaitForGreeting: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("booking: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("booking: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)

	log.Info().
		Str("restaurant", req.RestaurantName).
		Str("destination", toNumber).
		Msg("Triggering reservation call")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("booking: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("booking: upstream status %d: %s", resp.StatusCode, b)
	}

	var decoded callResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("booking: decode response: %w", err)
	}

	log.Info().Str("callId", decoded.CallID).Msg("Reservation call started")
	return &models.BookingResult{Status: decoded.Status, CallID: decoded.CallID}, nil
}

// taskPrompt builds the call agent script. The persona speaks French, keeps
// answers short and falls back to 9pm if 8pm is refused.
func taskPrompt(restaurantName string) string {
	return fmt.Sprintf(
		"Tu es James, un assistant personnel charmant et confiant. "+
			"Tu appelles le restaurant %s pour réserver une table pour 2 personnes à 20h ce soir. "+
			"Tu es poli, professionnel et un peu dragueur. "+
			"1. Commence par demander la réservation poliment mais fermement. "+
			"2. Si on te demande un nom, dis que c'est pour 'Tyrone'. "+
			"3. Si l'heure est confirmée, dis 'Fantastique, à tout à l'heure' et raccroche. "+
			"4. S'ils disent non pour 20h, demande 'Et vers 21h ?'. "+
			"Garde tes réponses courtes (moins de 20 mots). Ne propose pas d'autre aide. Réserve juste la table.",
		restaurantName,
	)
}
