package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	var gotAuth string
	var gotReq openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"sql": "SELECT 1"}`}},
			},
		})
	}))
	defer srv.Close()

	c := New("openai", "gpt-4o-mini")
	c.BaseURL = srv.URL

	out, err := c.Complete(context.Background(), "generate sql")
	require.NoError(t, err)
	assert.Equal(t, `{"sql": "SELECT 1"}`, out)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "generate sql", gotReq.Messages[0].Content)
}

func TestCompleteOpenAINon200(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("openai", "")
	c.BaseURL = srv.URL
	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestCompleteAnthropic(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "answer"}},
		})
	}))
	defer srv.Close()

	c := New("anthropic", "claude-3-haiku-20240307")
	c.BaseURL = srv.URL

	out, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "test-key", gotKey)
	assert.NotEmpty(t, gotVersion)
}

func TestCompleteMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := New("openai", "")
	_, err := c.Complete(context.Background(), "p")
	assert.Error(t, err)
}

func TestCompleteUnknownProvider(t *testing.T) {
	c := New("cohere", "m")
	_, err := c.Complete(context.Background(), "p")
	assert.Error(t, err)
}
