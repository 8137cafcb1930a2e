package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrBlocked is returned when the provider refuses to answer a prompt.
var ErrBlocked = errors.New("response blocked by the provider")

// Client is what grading, transcription and the chatbot need from a model provider.
type Client interface {
	// GenerateContent returns free text.
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON returns a JSON document with any markdown fences removed.
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// TranscribeDocument reads a scanned page (image or PDF bytes) and returns its text.
	TranscribeDocument(ctx context.Context, prompt string, data []byte, mimeType string, tier ModelTier) (string, error)
	// GetModel returns the provider model name used for a tier.
	GetModel(tier ModelTier) string
	Close() error
}

// NewClient creates the client of the configured provider.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", config.Provider)
	}
}

// GeminiClient implements Client on the Gemini API. Transient provider errors
// are retried with exponential backoff.
type GeminiClient struct {
	client  *genai.Client
	config  *Config
	backoff time.Duration
}

// NewGeminiClient creates a Gemini client authenticated by apiKey.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, config: config, backoff: time.Second}, nil
}

// GenerateContent implements Client.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, tier, false, genai.Text(prompt))
}

// GenerateJSON implements Client.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, tier, true, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// TranscribeDocument sends the document inline, ahead of the prompt.
func (c *GeminiClient) TranscribeDocument(ctx context.Context, prompt string, data []byte, mimeType string, tier ModelTier) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("document is empty")
	}
	if mimeType == "" {
		return "", fmt.Errorf("document MIME type is required")
	}
	return c.generate(ctx, tier, false, genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(prompt))
}

func (c *GeminiClient) generate(ctx context.Context, tier ModelTier, jsonMode bool, parts ...genai.Part) (string, error) {
	name := c.config.GetModel(tier)
	if name == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	model := c.client.GenerativeModel(name)
	model.SetTemperature(c.config.Temperature)
	if jsonMode {
		model.ResponseMIMEType = "application/json"
	}

	wait := c.backoff
	for attempt := 0; ; attempt++ {
		resp, err := model.GenerateContent(ctx, parts...)
		if err == nil {
			return responseText(resp)
		}
		if attempt >= c.config.MaxRetries || !isTransient(err) {
			return "", fmt.Errorf("%s request failed: %w", name, err)
		}
		log.Printf("[llm] %s attempt %d failed, retrying in %v: %v", name, attempt+1, wait, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// GetModel implements Client.
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close implements Client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// isTransient reports whether a provider error is worth retrying.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: prompt %s", ErrBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: %s", ErrBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return sb.String(), nil
}
