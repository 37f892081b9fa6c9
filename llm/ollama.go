package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama defaults.
const (
	OllamaBaseURL      = "http://localhost:11434"
	OllamaDefaultModel = "llama3.2"
)

// Ollama calls a local Ollama server.
type Ollama struct {
	client *http.Client
	opts   Options
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllama creates a local backend.
func NewOllama(opts Options) *Ollama {
	opts = opts.withDefaults(OllamaDefaultModel, OllamaBaseURL)
	return &Ollama{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Name implements Backend.
func (o *Ollama) Name() string { return "local/" + o.opts.Model }

// Generate runs a non-streaming /api/generate call.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  o.opts.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  o.opts.MaxTokens,
			Temperature: o.opts.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.opts.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError("ollama", resp.StatusCode, body)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("ollama error: %s", decoded.Error)
	}
	if strings.TrimSpace(decoded.Response) == "" {
		return "", fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}

	return decoded.Response, nil
}
