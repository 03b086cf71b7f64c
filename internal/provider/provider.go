package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DocumentRef names one document in a request, for templates and logs.
type DocumentRef struct {
	Name string
	Type string
}

// Request is the uniform logical request every backend receives. Wire
// backends send the assembled System and Prompt strings; the demo backend
// answers from Query and Documents without any network call.
type Request struct {
	Query     string
	Documents []DocumentRef
	System    string
	Prompt    string
}

// Generator is the minimal contract a text-generation backend fulfils.
// Implementations are stateless per call and never retry; a remote failure
// surfaces immediately to the caller.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrUnsupportedProvider means the configured provider name is not known.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ErrEmptyResponse means the backend replied without any generated text.
var ErrEmptyResponse = errors.New("no response generated")

// ErrTimeout marks a call abandoned at its deadline.
var ErrTimeout = errors.New("request timed out")

// MisconfiguredError reports required configuration missing for a provider.
// It is returned before any network call is attempted.
type MisconfiguredError struct {
	Provider string
	Missing  string
}

func (e *MisconfiguredError) Error() string {
	return fmt.Sprintf("provider %s is not configured: missing %s", e.Provider, e.Missing)
}

// RemoteError is a non-2xx reply from a provider API.
type RemoteError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Config selects a provider and carries every backend's settings. Only the
// selected backend's values are required; New validates them before any
// network call can happen.
type Config struct {
	// Provider is one of openai, azure, google, anthropic, ollama, demo.
	// Empty selects demo.
	Provider string

	// MaxTokens and Temperature apply to every backend. Zero values select
	// the defaults (2000 tokens, temperature 0.7).
	MaxTokens   int
	Temperature float32

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	AzureKey        string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string

	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	OllamaBaseURL string
	OllamaModel   string

	// HTTPClient is shared by the wire backends. Nil means a default client.
	HTTPClient *http.Client
	// Timeout bounds each Generate call. Zero means rely on the caller's
	// context.
	Timeout time.Duration
}

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
)

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return defaultMaxTokens
}

func (c Config) temperature() float32 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return defaultTemperature
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{}
}

// New builds the Generator the configuration names. Required settings are
// checked here so a misconfigured provider fails at startup, not mid-call.
func New(cfg Config) (Generator, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "demo"
	}
	switch name {
	case "openai":
		return newOpenAI(cfg)
	case "azure":
		return newAzure(cfg)
	case "google":
		return newGemini(cfg)
	case "anthropic":
		return newAnthropic(cfg)
	case "ollama":
		return newOllama(cfg), nil
	case "demo":
		return &demo{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// classify keeps deadline failures recognizable as ErrTimeout.
func classify(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", name, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// jsonPost marshals in and posts it. Callers own status handling and
// decoding of the reply.
func jsonPost(ctx context.Context, hc *http.Client, endpoint string, headers map[string]string, in any) (*http.Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return hc.Do(req)
}

// remoteFailure drains a bounded slice of the error body into a RemoteError.
func remoteFailure(name string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &RemoteError{Provider: name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func stringOr(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
