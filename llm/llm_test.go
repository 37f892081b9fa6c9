package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pevans/newsmith/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.GenerationConfig
		want    any
		wantErr error
	}{
		{"openai", config.GenerationConfig{Backend: config.BackendOpenAI, APIKey: "k"}, &OpenAI{}, nil},
		{"anthropic", config.GenerationConfig{Backend: config.BackendAnthropic, APIKey: "k"}, &Anthropic{}, nil},
		{"local needs no key", config.GenerationConfig{Backend: config.BackendLocal}, &Ollama{}, nil},
		{"openai without key", config.GenerationConfig{Backend: config.BackendOpenAI}, nil, config.ErrMissingCredential},
		{"anthropic without key", config.GenerationConfig{Backend: config.BackendAnthropic}, nil, config.ErrMissingCredential},
		{"unknown", config.GenerationConfig{Backend: "gemini"}, nil, ErrUnsupportedBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, backend)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, backend)
		})
	}
}

func TestNew_DefaultModels(t *testing.T) {
	backend, err := New(config.GenerationConfig{Backend: config.BackendLocal})
	require.NoError(t, err)
	assert.Equal(t, "local/"+OllamaDefaultModel, backend.Name())

	backend, err = New(config.GenerationConfig{Backend: config.BackendOpenAI, APIKey: "k", Model: "gpt-4.1"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4.1", backend.Name())
}

func TestOpenAI_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Title: Hello\n\nBody"}}]}`)
	}))
	defer server.Close()

	backend := NewOpenAI(Options{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Temperature: 0.5})
	text, err := backend.Generate(context.Background(), "write something")
	require.NoError(t, err)

	assert.Equal(t, "Title: Hello\n\nBody", text)
	assert.Equal(t, OpenAIDefaultModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "write something", got.Messages[0].Content)
	assert.Equal(t, 0.5, got.Temperature)
}

func TestOpenAI_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			defer server.Close()

			_, err := NewOpenAI(Options{APIKey: "k", BaseURL: server.URL}).Generate(context.Background(), "p")
			require.Error(t, err)
			assert.Equal(t, tt.rateLimited, errors.Is(err, ErrRateLimited))
		})
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	_, err := NewOpenAI(Options{APIKey: "k", BaseURL: server.URL}).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllama_Generate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"model":"llama3.2","response":"Title: Local\n\nText","done":true}`)
	}))
	defer server.Close()

	backend := NewOllama(Options{BaseURL: server.URL, MaxTokens: 512})
	text, err := backend.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "Title: Local\n\nText", text)
	assert.False(t, got.Stream)
	assert.Equal(t, OllamaDefaultModel, got.Model)
	assert.Equal(t, 512, got.Options.NumPredict)
}

func TestOllama_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewOllama(Options{BaseURL: server.URL}).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAnthropic_Generate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Title: From Claude\n\n"}, {"type": "text", "text": "Body text"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer server.Close()

	backend := NewAnthropic(Options{APIKey: "ak-test", BaseURL: server.URL, Timeout: 5 * time.Second, MaxTokens: 300})
	text, err := backend.Generate(context.Background(), "rewrite this")
	require.NoError(t, err)

	assert.Equal(t, "Title: From Claude\n\nBody text", text)
	assert.Equal(t, AnthropicDefaultModel, got["model"])
	assert.EqualValues(t, 300, got["max_tokens"])
}

func TestAnthropic_RateLimited(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer server.Close()

	_, err := NewAnthropic(Options{APIKey: "k", BaseURL: server.URL}).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls, "SDK retries must stay disabled")
}

// TestStatusError_TruncatesOnRuneBoundary verifies long multi-byte bodies
// stay valid UTF-8
func TestStatusError_TruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)

	err := statusError("openai", http.StatusBadGateway, []byte(body))
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), strings.Repeat("a", maxErrorBody-1)+"é")
	assert.NotContains(t, err.Error(), "éé")

	err = statusError("openai", http.StatusTooManyRequests, []byte("slow down"))
	assert.ErrorIs(t, err, ErrRateLimited)
}
