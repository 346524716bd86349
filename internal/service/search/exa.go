// Package search finds restaurants through the Exa search API. Results are
// constrained to the demo neighbourhood: anything geolocated outside a
// two-degree box around Paris is dropped.
package search

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
	defaultEndpoint = "https://api.exa.ai/search"
	defaultTimeout  = 60 * time.Second

	searchLocation = "Champs-Élysées, Paris, France"
	parisLat       = 48.8566
	parisLon       = 2.3522
	geoTolerance   = 2.0
)

// ErrTimeout marks an upstream search that did not answer in time. The HTTP
// layer maps it to a gateway timeout.
var ErrTimeout = errors.New("search timed out")

// summarySchema asks Exa to extract just enough per result to render a map
// pin: name plus coordinates, with the richer fields optional.
var summarySchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"properties": map[string]any{
		"name":      map[string]any{"type": "string"},
		"latitude":  map[string]any{"type": "number"},
		"longitude": map[string]any{"type": "number"},
		"address":   map[string]any{"type": "string"},
		"cuisine":   map[string]any{"type": "string"},
		"phone":     map[string]any{"type": "string"},
	},
	"required": []string{"name", "latitude", "longitude"},
}

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

// Client calls the Exa search API.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// New creates an Exa search client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("search: API key is required")
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchRequest struct {
	Query      string         `json:"query"`
	Type       string         `json:"type"`
	NumResults int            `json:"num_results"`
	Livecrawl  string         `json:"livecrawl"`
	Contents   searchContents `json:"contents"`
}

type searchContents struct {
	Summary summaryRequest `json:"summary"`
}

type summaryRequest struct {
	Query  string         `json:"query"`
	Schema map[string]any `json:"schema"`
}

type searchResponse struct {
	Results []rawResult `json:"results"`
}

type rawResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

type resultSummary struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Cuisine   string  `json:"cuisine"`
	Phone     string  `json:"phone"`
}

// FastSearch runs a fast-mode search scoped to the demo location and returns
// geo-filtered restaurant results.
func (c *Client) FastSearch(ctx context.Context, prompt string, numResults int) ([]models.RestaurantResult, error) {
	if numResults <= 0 {
		numResults = 10
	}

	payload := searchRequest{
		Query:      fmt.Sprintf("%s near %s", prompt, searchLocation),
		Type:       "fast",
		NumResults: numResults,
		Livecrawl:  "never",
		Contents: searchContents{
			Summary: summaryRequest{
				Query:  "Extract restaurant/cafe name, latitude and longitude",
				Schema: summarySchema,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("search: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search: upstream status %d: %s", resp.StatusCode, b)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	restaurants := make([]models.RestaurantResult, 0, len(decoded.Results))
	for _, raw := range decoded.Results {
		if r, ok := transformResult(raw); ok {
			restaurants = append(restaurants, r)
		}
	}

	log.Debug().
		Int("raw", len(decoded.Results)).
		Int("kept", len(restaurants)).
		Msg("Search results geo-filtered")
	return restaurants, nil
}

// transformResult parses the summary JSON of one raw result and applies the
// geo filter. Results with unparseable summaries or out-of-area coordinates
// are dropped.
func transformResult(raw rawResult) (models.RestaurantResult, bool) {
	var summary resultSummary
	if err := json.Unmarshal([]byte(raw.Summary), &summary); err != nil {
		return models.RestaurantResult{}, false
	}
	if !validLocation(summary.Latitude, summary.Longitude) {
		return models.RestaurantResult{}, false
	}

	name := summary.Name
	if name == "" {
		name = raw.Title
	}
	if name == "" {
		name = "Unknown"
	}
	address := summary.Address
	if address == "" {
		address = "Not available"
	}
	cuisine := summary.Cuisine
	if cuisine == "" {
		cuisine = "Not specified"
	}

	return models.RestaurantResult{
		Name:          name,
		Address:       address,
		Cuisine:       cuisine,
		Rating:        0,
		MatchScore:    5,
		MatchCriteria: []string{},
		PriceRange:    "Unknown",
		URL:           raw.URL,
		Phone:         summary.Phone,
		Geolocation: models.Geolocation{
			Latitude:  summary.Latitude,
			Longitude: summary.Longitude,
		},
	}, true
}

// validLocation accepts coordinates within the tolerance box around Paris,
// rejecting the 0,0 placeholder some summaries return.
func validLocation(lat, lon float64) bool {
	if lat == 0 || lon == 0 {
		return false
	}
	return abs(lat-parisLat) <= geoTolerance && abs(lon-parisLon) <= geoTolerance
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
