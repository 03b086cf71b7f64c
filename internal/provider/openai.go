package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openAI serves both the public OpenAI API and Azure OpenAI deployments
// through the same chat-completions client; only the client configuration
// and the reported name differ.
type openAI struct {
	client      *openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

func newOpenAI(cfg Config) (*openAI, error) {
	if strings.TrimSpace(cfg.OpenAIKey) == "" {
		return nil, &MisconfiguredError{Provider: "openai", Missing: "api key"}
	}
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &openAI{
		client:      openai.NewClientWithConfig(oc),
		name:        "openai",
		model:       stringOr(cfg.OpenAIModel, "gpt-4o-mini"),
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		timeout:     cfg.Timeout,
	}, nil
}

func newAzure(cfg Config) (*openAI, error) {
	var missing []string
	if strings.TrimSpace(cfg.AzureEndpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(cfg.AzureKey) == "" {
		missing = append(missing, "api key")
	}
	if len(missing) > 0 {
		return nil, &MisconfiguredError{Provider: "azure", Missing: strings.Join(missing, " and ")}
	}
	deployment := stringOr(cfg.AzureDeployment, "gpt-35-turbo")
	oc := openai.DefaultAzureConfig(cfg.AzureKey, cfg.AzureEndpoint)
	oc.APIVersion = stringOr(cfg.AzureAPIVersion, "2024-02-15-preview")
	oc.AzureModelMapperFunc = func(string) string { return deployment }
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &openAI{
		client:      openai.NewClientWithConfig(oc),
		name:        "azure",
		model:       deployment,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		timeout:     cfg.Timeout,
	}, nil
}

func (p *openAI) Name() string { return p.name }

func (p *openAI) Generate(ctx context.Context, req Request) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &RemoteError{Provider: p.name, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return "", classify(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}
	return text, nil
}
