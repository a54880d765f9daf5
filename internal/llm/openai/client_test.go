package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/pocket-flow/internal/llm"
)

func newTestServer(t *testing.T, status int, body string, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CallLLM(t *testing.T) {
	calls := 0
	srv := newTestServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}]
	}`, &calls)

	client, err := NewClient(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	require.NoError(t, err)

	msg, err := client.CallLLM(context.Background(), []llm.Message{llm.User("hi")})
	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, msg.Role)
	assert.Equal(t, "hello there", msg.Content)
	assert.Equal(t, 1, calls)
}

func TestClient_CallLLM_SingleAttemptOnError(t *testing.T) {
	calls := 0
	srv := newTestServer(t, http.StatusInternalServerError,
		`{"error": {"message": "overloaded", "type": "server_error"}}`, &calls)

	client, err := NewClient(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	require.NoError(t, err)

	_, err = client.CallLLM(context.Background(), []llm.Message{llm.User("hi")})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "retries belong to the engine node")
}

func TestClient_CallLLM_NoChoices(t *testing.T) {
	calls := 0
	srv := newTestServer(t, http.StatusOK, `{"id": "x", "choices": []}`, &calls)

	client, err := NewClient(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	require.NoError(t, err)

	_, err = client.CallLLM(context.Background(), []llm.Message{llm.User("hi")})
	assert.ErrorContains(t, err, "no choices")
}

func TestClient_CallLLM_NoMessages(t *testing.T) {
	client, err := NewClient(&Config{APIKey: "k", Model: "m"})
	require.NoError(t, err)
	_, err = client.CallLLM(context.Background(), nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	bad := float32(3)
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{APIKey: "k", Model: "m"}, true},
		{"missing key", Config{Model: "m"}, false},
		{"missing model", Config{APIKey: "k"}, false},
		{"temperature", Config{APIKey: "k", Model: "m", Temperature: &bad}, false},
		{"max tokens", Config{APIKey: "k", Model: "m", MaxTokens: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_TOKENS", "128")
	t.Setenv("LLM_TIMEOUT", "")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "env-model", cfg.Model)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-6)
	assert.Equal(t, 128, cfg.MaxTokens)
	assert.True(t, Configured())
}

func TestNewConfigFromEnv_MalformedValues(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("LLM_MAX_TOKENS", "lots")
	t.Setenv("LLM_TIMEOUT", "30")

	_, err := NewConfigFromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "LLM_TEMPERATURE")
	assert.ErrorContains(t, err, "LLM_MAX_TOKENS")
	assert.ErrorContains(t, err, "LLM_TIMEOUT")
}

func TestClient_Config(t *testing.T) {
	cfg := &Config{APIKey: "k", BaseURL: "http://llm.local/v1", Model: "test-model"}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Same(t, cfg, client.Config())
	assert.Equal(t, "openai-compatible (test-model)", client.Name())
}
