package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(Config{APIKey: "test-key", BaseURL: server.URL + "/v1/", MaxRetries: -1})
	require.NoError(t, err)
	return p
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(Config{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, DefaultModel, p.ModelName())
	assert.Equal(t, DefaultEmbeddingModel, p.EmbeddingModel())
	assert.NoError(t, p.Close())
}

func TestProvider_Embed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-ada-002", body["model"])
		assert.Equal(t, "hello", body["input"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-ada-002",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25,0.125]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	})

	vec, err := p.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25, 0.125}, vec)
}

func TestProvider_Embed_NoData(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"m","usage":{"prompt_tokens":0,"total_tokens":0}}`))
	})

	_, err := p.Embed(context.Background(), "hello")

	assert.True(t, errors.Is(err, domain.ErrMalformedRecord))
}

func TestProvider_Complete(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-3.5-turbo", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "suggest a title", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Weekly Review \n"}}]}`))
	})

	out, err := p.Complete(context.Background(), "suggest a title")

	require.NoError(t, err)
	assert.Equal(t, "Weekly Review", out)
}

func TestProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"unauthorised", http.StatusUnauthorized, domain.ErrModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"denied","type":"error"}}`))
			})

			_, err := p.Complete(context.Background(), "x")

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestProvider_Ping(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})

	assert.NoError(t, p.Ping(context.Background()))
}
