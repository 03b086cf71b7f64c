package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Store
	DBPath string

	// Uploads
	MaxFileSize int64 // bytes

	// Provider selection and shared generation settings
	Provider    string
	MaxTokens   int
	Temperature float32

	// OpenAI
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	// Azure OpenAI
	AzureKey        string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	// Google Gemini
	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string

	// Anthropic
	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	// Ollama
	OllamaBaseURL string
	OllamaModel   string

	// Confluence defaults used when a request carries no credentials
	ConfluenceEmail   string
	ConfluenceToken   string
	ConfluenceTimeout time.Duration

	// Memo caches, one per computed artifact
	InsightCacheTTL time.Duration
	InsightCacheCap int
	SummaryCacheTTL time.Duration
	SummaryCacheCap int
	TopicCacheTTL   time.Duration
	TopicCacheCap   int

	// Behavior
	RequestTimeout time.Duration
	Verbose        bool
}

// Defaults shared by flag definitions and config overlays.
const (
	DefaultDBPath            = "docinsight.db"
	DefaultMaxFileSize       = 10 << 20
	DefaultConfluenceTimeout = 30 * time.Second
	DefaultRequestTimeout    = 60 * time.Second
	DefaultCacheTTL          = 30 * time.Minute
	DefaultCacheCap          = 256
)

func (c Config) dbPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return DefaultDBPath
}

func (c Config) maxFileSize() int64 {
	if c.MaxFileSize > 0 {
		return c.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (c Config) confluenceTimeout() time.Duration {
	if c.ConfluenceTimeout > 0 {
		return c.ConfluenceTimeout
	}
	return DefaultConfluenceTimeout
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return DefaultRequestTimeout
}

func (c Config) cacheTTL(v time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return DefaultCacheTTL
}

func (c Config) cacheCap(v int) int {
	if v > 0 {
		return v
	}
	return DefaultCacheCap
}
