package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// anthropic talks to the Claude messages API.
type anthropic struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float32
	hc          *http.Client
	timeout     time.Duration
}

func newAnthropic(cfg Config) (*anthropic, error) {
	if strings.TrimSpace(cfg.AnthropicKey) == "" {
		return nil, &MisconfiguredError{Provider: "anthropic", Missing: "api key"}
	}
	return &anthropic{
		apiKey:      cfg.AnthropicKey,
		model:       stringOr(cfg.AnthropicModel, "claude-3-sonnet-20240229"),
		baseURL:     strings.TrimRight(stringOr(cfg.AnthropicBaseURL, "https://api.anthropic.com"), "/"),
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		hc:          cfg.httpClient(),
		timeout:     cfg.Timeout,
	}, nil
}

func (a *anthropic) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *anthropic) Generate(ctx context.Context, req Request) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	body := anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
	resp, err := jsonPost(ctx, a.hc, a.baseURL+"/v1/messages", headers, body)
	if err != nil {
		return "", classify("anthropic", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", remoteFailure("anthropic", resp)
	}
	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	for _, block := range parsed.Content {
		if text := strings.TrimSpace(block.Text); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
}
