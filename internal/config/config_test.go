package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(strings.ToUpper(key), "")
	}
	for _, legacy := range legacyEnv {
		t.Setenv(legacy, "")
	}
}

type fakeTokens struct {
	values map[string]string
	err    error
	names  []string
}

func (f *fakeTokens) Token(_ context.Context, name string) (string, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return "", f.err
	}
	return f.values[name], nil
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ns1", cfg.PineconeNamespace)
	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, ProviderGemini, cfg.GenerationProvider)
	require.Equal(t, 768, cfg.OpenAIEmbeddingDimensions)
	require.Equal(t, "legacy", cfg.Formatter)
	require.Equal(t, 5, cfg.HistoryWindow)
	require.Equal(t, 5, cfg.TopK)
	require.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("PINECONE_API_KEY", "p-key")
	t.Setenv("PINECONE_INDEX_NAME", "profs")
	t.Setenv("PORT", "8080")
	t.Setenv("GENERATION_PROVIDER", "OpenAI")
	t.Setenv("TOP_K", "3")
	t.Setenv("UPSTREAM_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "g-key", cfg.GoogleAPIKey)
	require.Equal(t, "p-key", cfg.PineconeAPIKey)
	require.Equal(t, "profs", cfg.PineconeIndexName)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ProviderOpenAI, cfg.GenerationProvider)
	require.Equal(t, 3, cfg.TopK)
	require.Equal(t, 45*time.Second, cfg.UpstreamTimeout)
}

func TestLoad_AcceptsLegacyNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("REACT_APP_GOOGLE_API_KEY", "legacy-g")
	t.Setenv("REACT_APP_PINECONE_API_KEY", "legacy-p")
	t.Setenv("REACT_APP_PINECONE_INDEX_NAME", "legacy-index")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "legacy-g", cfg.GoogleAPIKey)
	require.Equal(t, "legacy-p", cfg.PineconeAPIKey)
	require.Equal(t, "legacy-index", cfg.PineconeIndexName)
}

func TestLoad_PrefersCurrentNameOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "current")
	t.Setenv("REACT_APP_GOOGLE_API_KEY", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "current", cfg.GoogleAPIKey)
}

func validConfig() *Config {
	return &Config{
		GoogleAPIKey:              "g",
		PineconeAPIKey:            "p",
		PineconeIndexName:         "profs",
		GenerationProvider:        ProviderGemini,
		OpenAIEmbeddingDimensions: 768,
		Formatter:                 "legacy",
		HistoryWindow:             5,
		TopK:                      5,
		UpstreamTimeout:           time.Second,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "host instead of name", mutate: func(c *Config) { c.PineconeIndexName = ""; c.PineconeIndexHost = "profs.svc.pinecone.io" }},
		{name: "missing pinecone key", mutate: func(c *Config) { c.PineconeAPIKey = "" }, wantErr: "PINECONE_API_KEY"},
		{name: "missing index", mutate: func(c *Config) { c.PineconeIndexName = "" }, wantErr: "PINECONE_INDEX_NAME"},
		{name: "missing google key", mutate: func(c *Config) { c.GoogleAPIKey = "" }, wantErr: "GOOGLE_API_KEY"},
		{name: "openai without key", mutate: func(c *Config) { c.GenerationProvider = ProviderOpenAI }, wantErr: "OPENAI_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.GenerationProvider = "bard" }, wantErr: "GENERATION_PROVIDER"},
		{name: "unknown formatter", mutate: func(c *Config) { c.Formatter = "rtf" }, wantErr: "unknown formatter"},
		{name: "zero top k", mutate: func(c *Config) { c.TopK = 0 }, wantErr: "TOP_K"},
		{name: "zero timeout", mutate: func(c *Config) { c.UpstreamTimeout = 0 }, wantErr: "UPSTREAM_TIMEOUT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestResolveSecrets_NoPrefixIsNoop(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.ResolveSecrets(context.Background(), nil))
	require.Equal(t, "g", cfg.GoogleAPIKey)
}

func TestResolveSecrets_Gemini(t *testing.T) {
	cfg := validConfig()
	cfg.ParamPrefix = "/profsync/"
	src := &fakeTokens{values: map[string]string{
		"/profsync/pinecone-api-key": "ssm-p",
		"/profsync/google-api-key":   "ssm-g",
	}}

	require.NoError(t, cfg.ResolveSecrets(context.Background(), src))
	require.Equal(t, "ssm-p", cfg.PineconeAPIKey)
	require.Equal(t, "ssm-g", cfg.GoogleAPIKey)
	require.Equal(t, []string{"/profsync/pinecone-api-key", "/profsync/google-api-key"}, src.names)
}

func TestResolveSecrets_OpenAI(t *testing.T) {
	cfg := validConfig()
	cfg.GenerationProvider = ProviderOpenAI
	cfg.ParamPrefix = "/profsync"
	src := &fakeTokens{values: map[string]string{
		"/profsync/pinecone-api-key": "ssm-p",
		"/profsync/openai-api-key":   "ssm-o",
	}}

	require.NoError(t, cfg.ResolveSecrets(context.Background(), src))
	require.Equal(t, "ssm-o", cfg.OpenAIAPIKey)
	require.Equal(t, "g", cfg.GoogleAPIKey)
}

func TestResolveSecrets_Error(t *testing.T) {
	cfg := validConfig()
	cfg.ParamPrefix = "/profsync"

	err := cfg.ResolveSecrets(context.Background(), &fakeTokens{err: errors.New("access denied")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "/profsync/pinecone-api-key")
}
