// Package extract turns raw conversation transcripts into structured
// restaurant requirements using Grok over the OpenAI-compatible xAI API.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://api.x.ai/v1"
	defaultModel   = "grok-3-fast"
	defaultTimeout = 30 * time.Second

	// Low temperature keeps the extraction output consistent.
	extractionTemperature = 0.3
	extractionMaxTokens   = 500
)

const systemPrompt = `You are an AI assistant for VoiceDine, a voice-powered restaurant discovery app.
Your job is to extract clear, structured food and restaurant requirements from casual multi-user conversations.

Users speak naturally about what they're looking for in a restaurant or food spot. You must:
1. Extract specific requirements mentioned (cuisine type, price range, ambiance, dietary restrictions, etc.)
2. Tag each requirement with the speaker who mentioned it (User 0, User 1, etc.)
3. Return a JSON array of requirement strings

Examples of requirements to extract:
- Cuisine types: "Italian food", "Sushi", "Mexican", "French bistro"
- Price preferences: "Budget friendly", "Upscale", "Mid-range"
- Dietary needs: "Vegetarian", "Vegan options", "Gluten-free"
- Ambiance: "Romantic", "Family-friendly", "Outdoor seating"
- Features: "Good for groups", "Live music", "Late night"
- Specific dishes: "Good pasta", "Best pizza", "Fresh seafood"

IMPORTANT: Only extract actual requirements. Ignore filler words, greetings, or off-topic conversation.
If no clear requirements are found in the text, return an empty array.

Return ONLY a valid JSON array of strings, nothing else. Each string should be formatted as:
"Requirement [User X]"

Example output:
["Italian food [User 0]", "Budget friendly [User 1]", "Outdoor seating [User 0]"]`

// Option configures the extractor.
type Option func(*config)

type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// Extractor calls Grok to pull requirement strings out of transcripts.
type Extractor struct {
	client oai.Client
	model  string
}

// New constructs a requirement extractor.
func New(apiKey string, opts ...Option) (*Extractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extract: apiKey must not be empty")
	}

	cfg := &config{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(cfg)
	}

	client := oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	)
	return &Extractor{client: client, model: cfg.model}, nil
}

// Requirements extracts requirement strings from a transcript. An empty or
// whitespace-only transcript returns nil without an API call.
func (e *Extractor) Requirements(ctx context.Context, transcript string) ([]string, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}
	userMessage := fmt.Sprintf("Extract food and restaurant requirements from this conversation:\n\n%s", transcript)
	return e.complete(ctx, userMessage)
}

// RequirementsWithContext extracts only requirements not already captured.
// The existing list is passed to the model so repeats are suppressed.
func (e *Extractor) RequirementsWithContext(ctx context.Context, transcript string, existing []string) ([]string, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	var contextBlock string
	if len(existing) > 0 {
		encoded, err := json.Marshal(existing)
		if err != nil {
			return nil, fmt.Errorf("extract: marshal existing requirements: %w", err)
		}
		contextBlock = fmt.Sprintf("\n\nAlready captured requirements (don't repeat these unless they add new detail):\n%s", encoded)
	}

	userMessage := fmt.Sprintf("Extract NEW food and restaurant requirements from this conversation:%s\n\nNew conversation:\n%s", contextBlock, transcript)
	return e.complete(ctx, userMessage)
}

func (e *Extractor) complete(ctx context.Context, userMessage string) ([]string, error) {
	resp, err := e.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userMessage),
		},
		Temperature: param.NewOpt(extractionTemperature),
		MaxTokens:   param.NewOpt(int64(extractionMaxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("extract: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extract: empty choices in response")
	}

	return parseRequirements(resp.Choices[0].Message.Content), nil
}

// parseRequirements decodes the model output into a string list. Markdown
// code fences are stripped first; anything that is not a JSON array comes
// back empty rather than failing the request.
func parseRequirements(content string) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		log.Debug().Str("content", content).Msg("Unparseable extraction output, returning no requirements")
		return []string{}
	}

	requirements := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok || s == "" {
			continue
		}
		requirements = append(requirements, s)
	}
	return requirements
}
