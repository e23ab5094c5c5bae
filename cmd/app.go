package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"profsync/handler"
	"profsync/internal/config"
	"profsync/internal/format"
	"profsync/internal/integrations/gemini"
	"profsync/internal/integrations/openai"
	"profsync/internal/integrations/paramstore"
	"profsync/internal/integrations/pinecone"
	"profsync/internal/metrics"
	"profsync/internal/repository"
	"profsync/internal/usecase"
)

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	handler  *handler.Handler
	registry *prometheus.Registry
}

// buildApp loads configuration and wires every dependency of the chat route.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		store, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("create SSM client: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	gen, emb, err := newBackend(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	searchOpts := []pinecone.Option{
		pinecone.WithNamespace(cfg.PineconeNamespace),
		pinecone.WithHTTPClient(httpClient),
		pinecone.WithTimeout(cfg.UpstreamTimeout),
	}
	if cfg.PineconeIndexHost != "" {
		searchOpts = append(searchOpts, pinecone.WithHost(cfg.PineconeIndexHost))
	}
	searcher, err := pinecone.NewClient(cfg.PineconeAPIKey, cfg.PineconeIndexName, searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("create Pinecone client: %w", err)
	}

	formatter, err := format.New(cfg.Formatter)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	chat, err := usecase.NewChatService(gen, emb, searcher, repository.NewHistory(cfg.HistoryWindow),
		usecase.WithFormatter(formatter),
		usecase.WithLogger(logger),
		usecase.WithMetrics(recorder),
		usecase.WithTopK(cfg.TopK),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}

	h, err := handler.NewHandler(chat, handler.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}

	return &app{cfg: cfg, logger: logger, handler: h, registry: registry}, nil
}

// newBackend returns the generation and embedding clients for the configured
// provider. Both halves always come from the same provider.
func newBackend(cfg *config.Config, httpClient *http.Client) (usecase.Generator, usecase.Embedder, error) {
	switch cfg.GenerationProvider {
	case config.ProviderOpenAI:
		c, err := openai.NewClient(cfg.OpenAIAPIKey,
			openai.WithHTTPClient(httpClient),
			openai.WithModel(cfg.OpenAIModel),
			openai.WithEmbeddingModel(cfg.OpenAIEmbeddingModel),
			openai.WithDimensions(cfg.OpenAIEmbeddingDimensions),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create OpenAI client: %w", err)
		}
		return c, c, nil
	case config.ProviderGemini:
		c, err := gemini.NewClient(cfg.GoogleAPIKey,
			gemini.WithHTTPClient(httpClient),
			gemini.WithModel(cfg.GeminiModel),
			gemini.WithEmbeddingModel(cfg.GeminiEmbeddingModel),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create Gemini client: %w", err)
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}
