// internal/llm/client_test.go
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epd-assistant/internal/common/config"
	"epd-assistant/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.LLMConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		DefaultModel:   "llama3.1",
		EmbeddingModel: "nomic-embed-text",
		Timeout:        5,
		EmbedTimeout:   5,
	}, logger.NewTestLogger(t))
}

func TestResolveModel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		selector string
		want     string
	}{
		{"llama3.1", "llama3.1"},
		{"mistral", "mistral"},
		{"llama3.1-3b", "llama3.1-3b"},
		{"Llama-3.2-1B-Instruct", "llama3.1"},
		{"Mistral-7B-Instruct-v0.2", "mistral"},
		{"Llama-3.2-3B", "llama3.1-3b"},
		{"", "llama3.1"},
		{"gpt-4", "llama3.1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.ResolveModel(tt.selector), "selector %q", tt.selector)
	}
}

func TestGenerateReturnsTrimmedAnswer(t *testing.T) {
	var gotModel string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, _ = req["model"].(string)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  An EPD is a declaration.\n"}},
			},
		})
	})

	answer, err := c.Generate(context.Background(), "What is an EPD?", "mistral")
	require.NoError(t, err)
	assert.Equal(t, "An EPD is a declaration.", answer)
	assert.Equal(t, "mistral", gotModel)
}

func TestGenerateEmptyResponseIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "   "}},
			},
		})
	})

	_, err := c.Generate(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateSurfacesAPIFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	})

	_, err := c.Generate(context.Background(), "q", "")
	assert.Error(t, err)
}

func TestEmbedReturnsVector(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		})
	})

	vec, err := c.Embed(context.Background(), "What is an EPD?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedEmptyDataIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	})

	_, err := c.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
