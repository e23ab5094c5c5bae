// Package openai backs the generation and embedding contracts with the
// official OpenAI SDK. It is the drop-in alternative to the Gemini client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"profsync/internal/domain"
)

const (
	defaultModel          = string(openai.ChatModelGPT4oMini)
	defaultEmbeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
)

// HTTPStatusError carries the status of a failed API call.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

func (e *HTTPStatusError) HTTPStatusCode() int { return e.StatusCode }

type settings struct {
	baseURL        string
	httpClient     *http.Client
	model          string
	embeddingModel string
	dimensions     int64
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
		if m := strings.TrimSpace(model); m != "" {
			s.model = m
		}
	}
}

func WithEmbeddingModel(model string) Option {
	return func(s *settings) {
		if m := strings.TrimSpace(model); m != "" {
			s.embeddingModel = m
		}
	}
}

// WithDimensions truncates embeddings so they fit an index built for another
// model. Zero keeps the model's native size.
func WithDimensions(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.dimensions = int64(n)
		}
	}
}

type Client struct {
	sdk            openai.Client
	model          string
	embeddingModel string
	dimensions     int64
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	s := settings{model: defaultModel, embeddingModel: defaultEmbeddingModel}
	for _, opt := range opts {
		opt(&s)
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if s.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(s.httpClient))
	}
	return &Client{
		sdk:            openai.NewClient(sdkOpts...),
		model:          s.model,
		embeddingModel: s.embeddingModel,
		dimensions:     s.dimensions,
	}, nil
}

// Generate sends prompt as a single user message and returns the trimmed reply.
// A refusal or an empty message is an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat request failed: %w", wrapStatus(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("openai: model refused: %s", msg.Refusal)
	}
	if msg.Content == "" {
		return "", errors.New("openai: no message content in response")
	}
	return strings.TrimSpace(msg.Content), nil
}

func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingVector, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	}
	if c.dimensions > 0 {
		params.Dimensions = openai.Int(c.dimensions)
	}
	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: embedding request failed: %w", wrapStatus(err))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: empty embedding in response")
	}
	out := make(domain.EmbeddingVector, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

func wrapStatus(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &HTTPStatusError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return err
}
