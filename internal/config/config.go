// Package config loads runtime settings from the environment, an optional
// .env file and, when PARAM_PREFIX is set, SSM Parameter Store.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"profsync/internal/format"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	GoogleAPIKey string `mapstructure:"google_api_key"`

	PineconeAPIKey    string `mapstructure:"pinecone_api_key"`
	PineconeIndexName string `mapstructure:"pinecone_index_name"`
	PineconeIndexHost string `mapstructure:"pinecone_index_host"`
	PineconeNamespace string `mapstructure:"pinecone_namespace"`

	Port               string `mapstructure:"port"`
	GenerationProvider string `mapstructure:"generation_provider"`

	GeminiModel          string `mapstructure:"gemini_model"`
	GeminiEmbeddingModel string `mapstructure:"gemini_embedding_model"`

	OpenAIAPIKey              string `mapstructure:"openai_api_key"`
	OpenAIModel               string `mapstructure:"openai_model"`
	OpenAIEmbeddingModel      string `mapstructure:"openai_embedding_model"`
	OpenAIEmbeddingDimensions int    `mapstructure:"openai_embedding_dimensions"`

	Formatter       string        `mapstructure:"formatter"`
	HistoryWindow   int           `mapstructure:"history_window"`
	TopK            int           `mapstructure:"top_k"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	ParamPrefix string `mapstructure:"param_prefix"`
}

// legacyEnv maps keys to the REACT_APP_* names older deployments set.
var legacyEnv = map[string]string{
	"google_api_key":      "REACT_APP_GOOGLE_API_KEY",
	"pinecone_api_key":    "REACT_APP_PINECONE_API_KEY",
	"pinecone_index_name": "REACT_APP_PINECONE_INDEX_NAME",
}

var keys = []string{
	"google_api_key",
	"pinecone_api_key",
	"pinecone_index_name",
	"pinecone_index_host",
	"pinecone_namespace",
	"port",
	"generation_provider",
	"gemini_model",
	"gemini_embedding_model",
	"openai_api_key",
	"openai_model",
	"openai_embedding_model",
	"openai_embedding_dimensions",
	"formatter",
	"history_window",
	"top_k",
	"upstream_timeout",
	"log_level",
	"log_format",
	"param_prefix",
}

// Load reads configuration from the process environment. A .env file in the
// working directory is applied first if present; it never overrides variables
// that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for _, key := range keys {
		names := []string{key, strings.ToUpper(key)}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	v.SetDefault("pinecone_namespace", "ns1")
	v.SetDefault("port", "5000")
	v.SetDefault("generation_provider", ProviderGemini)
	v.SetDefault("openai_embedding_dimensions", 768)
	v.SetDefault("formatter", format.KindLegacy)
	v.SetDefault("history_window", 5)
	v.SetDefault("top_k", 5)
	v.SetDefault("upstream_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.GenerationProvider = strings.ToLower(strings.TrimSpace(cfg.GenerationProvider))
	return &cfg, nil
}

type TokenSource interface {
	Token(ctx context.Context, name string) (string, error)
}

// ResolveSecrets replaces API keys with values stored under ParamPrefix. It is
// a no-op when no prefix is configured. Only the keys the selected provider
// needs are fetched.
func (c *Config) ResolveSecrets(ctx context.Context, src TokenSource) error {
	if c.ParamPrefix == "" {
		return nil
	}
	if src == nil {
		return errors.New("config: token source must not be nil")
	}
	prefix := strings.TrimRight(c.ParamPrefix, "/")

	type secret struct {
		param string
		dst   *string
	}
	secrets := []secret{{param: "pinecone-api-key", dst: &c.PineconeAPIKey}}
	switch c.GenerationProvider {
	case ProviderOpenAI:
		secrets = append(secrets, secret{param: "openai-api-key", dst: &c.OpenAIAPIKey})
	default:
		secrets = append(secrets, secret{param: "google-api-key", dst: &c.GoogleAPIKey})
	}

	for _, s := range secrets {
		name := prefix + "/" + s.param
		token, err := src.Token(ctx, name)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", name, err)
		}
		*s.dst = token
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.PineconeAPIKey == "" {
		errs = append(errs, errors.New("PINECONE_API_KEY is required"))
	}
	if c.PineconeIndexName == "" && c.PineconeIndexHost == "" {
		errs = append(errs, errors.New("PINECONE_INDEX_NAME or PINECONE_INDEX_HOST is required"))
	}
	switch c.GenerationProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
		if c.OpenAIEmbeddingDimensions <= 0 {
			errs = append(errs, errors.New("OPENAI_EMBEDDING_DIMENSIONS must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GENERATION_PROVIDER %q", c.GenerationProvider))
	}
	if _, err := format.New(c.Formatter); err != nil {
		errs = append(errs, err)
	}
	if c.HistoryWindow <= 0 {
		errs = append(errs, errors.New("HISTORY_WINDOW must be positive"))
	}
	if c.TopK <= 0 {
		errs = append(errs, errors.New("TOP_K must be positive"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
