package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ollama talks to a local Ollama daemon. It needs no secret; the base URL
// defaults to the daemon's standard address.
type ollama struct {
	model       string
	baseURL     string
	maxTokens   int
	temperature float32
	hc          *http.Client
	timeout     time.Duration
}

func newOllama(cfg Config) *ollama {
	return &ollama{
		model:       stringOr(cfg.OllamaModel, "llama2"),
		baseURL:     strings.TrimRight(stringOr(cfg.OllamaBaseURL, "http://localhost:11434"), "/"),
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		hc:          cfg.httpClient(),
		timeout:     cfg.Timeout,
	}
}

func (o *ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *ollama) Generate(ctx context.Context, req Request) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	body := ollamaRequest{
		Model:  o.model,
		Prompt: req.System + "\n\n" + req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: o.temperature,
			NumPredict:  o.maxTokens,
		},
	}
	resp, err := jsonPost(ctx, o.hc, o.baseURL+"/api/generate", nil, body)
	if err != nil {
		return "", classify("ollama", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", remoteFailure("ollama", resp)
	}
	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return "", fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return text, nil
}
