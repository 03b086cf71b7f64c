package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// gemini talks to the Google Generative Language API.
type gemini struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float32
	hc          *http.Client
	timeout     time.Duration
}

func newGemini(cfg Config) (*gemini, error) {
	if strings.TrimSpace(cfg.GeminiKey) == "" {
		return nil, &MisconfiguredError{Provider: "google", Missing: "api key"}
	}
	return &gemini{
		apiKey:      cfg.GeminiKey,
		model:       stringOr(cfg.GeminiModel, "gemini-pro"),
		baseURL:     strings.TrimRight(stringOr(cfg.GeminiBaseURL, "https://generativelanguage.googleapis.com"), "/"),
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		hc:          cfg.httpClient(),
		timeout:     cfg.Timeout,
	}, nil
}

func (g *gemini) Name() string { return "google" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *gemini) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))
	body := geminiRequest{
		// Gemini has no separate system role on this endpoint; the system
		// prompt rides in front of the user prompt.
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.System + "\n\n" + req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
		},
	}
	resp, err := jsonPost(ctx, g.hc, endpoint, nil, body)
	if err != nil {
		return "", classify("google", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", remoteFailure("google", resp)
	}
	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("google: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("google: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("google: %w", ErrEmptyResponse)
	}
	return text, nil
}
