package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"profsync/internal/domain"
)

const (
	defaultModel          = "gemini-1.5-flash-latest"
	defaultEmbeddingModel = "text-embedding-004"
	defaultTimeout        = 30 * time.Second
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d (%s): %v", e.StatusCode, e.Status, e.Err)
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type settings struct {
	baseURL        string
	httpClient     *http.Client
	model          string
	embeddingModel string
}

type Option func(*settings)

func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *settings) {
		s.httpClient = httpClient
	}
}

func WithModel(model string) Option {
	return func(s *settings) {
		if m := normalizeModel(model); m != "" {
			s.model = m
		}
	}
}

func WithEmbeddingModel(model string) Option {
	return func(s *settings) {
		if m := normalizeModel(model); m != "" {
			s.embeddingModel = m
		}
	}
}

// Client calls Gemini generateContent and embedContent through the genai SDK.
// The SDK sends the API key in the x-goog-api-key header.
type Client struct {
	sdk            *genai.Client
	model          string
	embeddingModel string
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	s := settings{
		model:          defaultModel,
		embeddingModel: defaultEmbeddingModel,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions.BaseURL = s.baseURL
	}
	sdk, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{sdk: sdk, model: s.model, embeddingModel: s.embeddingModel}, nil
}

func normalizeModel(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}

// Generate sends prompt as a single user turn and returns the first
// candidate's text, trimmed. A first part carrying no text is an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate request failed: %w", wrapStatus(err))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidate text in response")
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil || content.Parts[0].Text == "" {
		return "", errors.New("gemini: no candidate text in response")
	}
	return strings.TrimSpace(content.Parts[0].Text), nil
}

// Embed returns the embedding of text from the configured embedding model.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingVector, error) {
	resp, err := c.sdk.Models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: embed request failed: %w", wrapStatus(err))
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini: empty embedding in response")
	}
	return domain.EmbeddingVector(resp.Embeddings[0].Values), nil
}

func wrapStatus(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPStatusError{StatusCode: apiErr.Code, Status: apiErr.Status, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &HTTPStatusError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Err: err}
	}
	return err
}
