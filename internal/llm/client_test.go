package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	t.Setenv(envProvider, "")
	t.Setenv(envOpenAIAPIKey, "")
	t.Setenv(envAPIKey, "")
	t.Setenv(envOpenAIModel, "")
	t.Setenv(envModel, "")

	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), envOpenAIAPIKey)

	c, err := New(Options{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, c.Name())

	t.Setenv(envProvider, "anthropic")
	_, err = New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAPIKey)

	c, err = New(Options{APIKey: "key", Model: "'claude-test'"})
	require.NoError(t, err)
	assert.Equal(t, "claude-test", c.Name())

	_, err = New(Options{Provider: "gemini", APIKey: "k"})
	assert.ErrorContains(t, err, "unknown LLM provider")
}

func TestOpenAIGenerateSendsImageAndJSONMode(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"action\":\"wait\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := New(Options{Provider: ProviderOpenAI, APIKey: "sk-test", BaseURL: srv.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), Request{
		System:   "sys",
		Messages: []Message{{Role: "user", Content: "look", Images: []Image{{MediaType: "image/png", Data: "AAAA"}}}},
		JSON:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"wait"}`, resp.Text)

	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "sys", msgs[0].(map[string]any)["content"])
	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "look", parts[0].(map[string]any)["text"])
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AAAA", image["url"])
}

func TestOpenAIGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	c.(*openAIClient).baseDelay = time.Millisecond

	resp, err := c.Generate(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	c, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Generate(context.Background(), Request{})
	assert.EqualError(t, err, "no messages")
}

func TestAnthropicGenerateSendsImageBlock(t *testing.T) {
	var got anthropicPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"action\":"},{"type":"text","text":"\"wait\"}"}]}`))
	}))
	defer srv.Close()

	c, err := New(Options{Provider: ProviderAnthropic, APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), Request{
		System:   "sys",
		Messages: []Message{{Role: "user", Content: "look", Images: []Image{{MediaType: "image/png", Data: "AAAA"}}}},
		JSON:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"wait"}`, resp.Text)

	assert.Contains(t, got.System, "single JSON object")
	require.Len(t, got.Messages, 1)
	blocks := got.Messages[0].Content
	require.Len(t, blocks, 2)
	assert.Equal(t, "image", blocks[0].Type)
	require.NotNil(t, blocks[0].Source)
	assert.Equal(t, "AAAA", blocks[0].Source.Data)
	assert.Equal(t, "look", blocks[1].Text)
}
