package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"profsync/internal/domain"
)

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorContains(t, err, "api key")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("key")
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash-latest", c.model)
	require.Equal(t, "text-embedding-004", c.embeddingModel)
}

func TestNewClient_ModelOptionsStripPrefix(t *testing.T) {
	c, err := NewClient("key", WithModel("models/gemini-2.0-flash"), WithEmbeddingModel(" "))
	require.NoError(t, err)
	require.Equal(t, "gemini-2.0-flash", c.model)
	require.Equal(t, defaultEmbeddingModel, c.embeddingModel)
}

// ---------------------------------------------------------------------------
// Client.Generate
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient("g-test",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	require.NoError(t, err)
	return c
}

func serveJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestClient_Generate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash-latest:generateContent"), r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "g-test", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.Query().Get("key"))

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Equal(t, "classify this", req.Contents[0].Parts[0].Text)

		serveJSON(http.StatusOK, `{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "  Professor-Specific\n"}]},
				"finishReason": "STOP"
			}]
		}`)(w, r)
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv, 2*time.Second).Generate(context.Background(), "classify this")
	require.NoError(t, err)
	require.Equal(t, "Professor-Specific", out)
}

func TestClient_Generate_MissingText(t *testing.T) {
	for _, body := range []string{
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"finishReason":"SAFETY"}]}`,
		`{}`,
	} {
		srv := httptest.NewServer(serveJSON(http.StatusOK, body))
		_, err := newTestClient(t, srv, 2*time.Second).Generate(context.Background(), "hi")
		srv.Close()
		require.ErrorContains(t, err, "no candidate text", "body=%s", body)
	}
}

func TestClient_Generate_PartWithoutText(t *testing.T) {
	srv := httptest.NewServer(serveJSON(http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"image/png","data":""}}]}}]}`))
	defer srv.Close()

	out, err := newTestClient(t, srv, 2*time.Second).Generate(context.Background(), "hi")
	require.ErrorContains(t, err, "no candidate text")
	require.Empty(t, out)
}

func TestClient_Generate_StatusError(t *testing.T) {
	srv := httptest.NewServer(serveJSON(http.StatusBadRequest,
		`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	defer srv.Close()

	_, err := newTestClient(t, srv, 2*time.Second).Generate(context.Background(), "hi")
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadRequest, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "400")
	require.NotContains(t, err.Error(), "g-test")
}

func TestClient_Generate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		serveJSON(http.StatusOK, `{"candidates":[]}`)(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 50*time.Millisecond).Generate(context.Background(), "hi")
	require.ErrorContains(t, err, "request failed")
}

func TestClient_Generate_NetworkError(t *testing.T) {
	c, err := NewClient("g-test", WithBaseURL("http://127.0.0.1:1"), WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "hi")
	require.ErrorContains(t, err, "request failed")
}

// ---------------------------------------------------------------------------
// Client.Embed
// ---------------------------------------------------------------------------

func TestClient_Embed_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/models/text-embedding-004:")
		require.Equal(t, "g-test", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		require.Contains(t, string(encoded), "Tell me about Dr. Smith")

		serveJSON(http.StatusOK, `{"embedding":{"values":[0.25,-0.5,1]},"embeddings":[{"values":[0.25,-0.5,1]}]}`)(w, r)
	}))
	defer srv.Close()

	vec, err := newTestClient(t, srv, 2*time.Second).Embed(context.Background(), "Tell me about Dr. Smith")
	require.NoError(t, err)
	require.Equal(t, domain.EmbeddingVector{0.25, -0.5, 1}, vec)
}

func TestClient_Embed_Empty(t *testing.T) {
	srv := httptest.NewServer(serveJSON(http.StatusOK, `{"embedding":{"values":[]},"embeddings":[{"values":[]}]}`))
	defer srv.Close()

	_, err := newTestClient(t, srv, 2*time.Second).Embed(context.Background(), "hi")
	require.ErrorContains(t, err, "empty embedding")
}

func TestClient_Embed_StatusError(t *testing.T) {
	srv := httptest.NewServer(serveJSON(http.StatusNotFound,
		`{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`))
	defer srv.Close()

	_, err := newTestClient(t, srv, 2*time.Second).Embed(context.Background(), "hi")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())
}
