package app

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
    if cfg == nil { return }

    setString := func(dst *string, envKey string) {
        if *dst == "" {
            *dst = os.Getenv(envKey)
        }
    }

    setString(&cfg.DBPath, "DOCINSIGHT_DB")
    setString(&cfg.Provider, "AI_PROVIDER")

    setString(&cfg.OpenAIKey, "OPENAI_API_KEY")
    setString(&cfg.OpenAIModel, "OPENAI_MODEL")
    setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")

    setString(&cfg.AzureKey, "AZURE_OPENAI_API_KEY")
    setString(&cfg.AzureEndpoint, "AZURE_OPENAI_ENDPOINT")
    setString(&cfg.AzureDeployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
    setString(&cfg.AzureAPIVersion, "AZURE_OPENAI_API_VERSION")

    setString(&cfg.GeminiKey, "GOOGLE_GEMINI_API_KEY")
    setString(&cfg.GeminiModel, "GOOGLE_GEMINI_MODEL")
    setString(&cfg.GeminiBaseURL, "GOOGLE_GEMINI_BASE_URL")

    setString(&cfg.AnthropicKey, "ANTHROPIC_API_KEY")
    setString(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
    setString(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")

    setString(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
    setString(&cfg.OllamaModel, "OLLAMA_MODEL")

    setString(&cfg.ConfluenceEmail, "CONFLUENCE_DEFAULT_EMAIL")
    setString(&cfg.ConfluenceToken, "CONFLUENCE_DEFAULT_TOKEN")

    if cfg.MaxTokens == 0 {
        if n, ok := envInt("OPENAI_MAX_TOKENS"); ok && n > 0 {
            cfg.MaxTokens = n
        }
    }
    if cfg.Temperature == 0 {
        if f, ok := envFloat("OPENAI_TEMPERATURE"); ok && f > 0 {
            cfg.Temperature = f
        }
    }
    if cfg.MaxFileSize == 0 {
        if n, ok := envInt("FILE_UPLOAD_MAX_SIZE"); ok && n > 0 {
            cfg.MaxFileSize = int64(n)
        }
    }

    if cfg.ConfluenceTimeout == 0 {
        if d, ok := envDuration("CONFLUENCE_TIMEOUT"); ok && d > 0 {
            cfg.ConfluenceTimeout = d
        }
    }
    if cfg.RequestTimeout == 0 {
        if d, ok := envDuration("REQUEST_TIMEOUT"); ok && d > 0 {
            cfg.RequestTimeout = d
        }
    }

    // CACHE_TTL and CACHE_CAP apply to every memo cache; per-cache tuning
    // lives in the config file.
    if d, ok := envDuration("CACHE_TTL"); ok && d > 0 {
        if cfg.InsightCacheTTL == 0 { cfg.InsightCacheTTL = d }
        if cfg.SummaryCacheTTL == 0 { cfg.SummaryCacheTTL = d }
        if cfg.TopicCacheTTL == 0 { cfg.TopicCacheTTL = d }
    }
    if n, ok := envInt("CACHE_CAP"); ok && n > 0 {
        if cfg.InsightCacheCap == 0 { cfg.InsightCacheCap = n }
        if cfg.SummaryCacheCap == 0 { cfg.SummaryCacheCap = n }
        if cfg.TopicCacheCap == 0 { cfg.TopicCacheCap = n }
    }

    if !cfg.Verbose {
        if b, ok := envBool("VERBOSE"); ok {
            cfg.Verbose = b
        }
    }
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. Use it when cfg was built from a
// config file and the environment should win, e.g. in containers.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    override := func(dst *string, envKey string) {
        if v := os.Getenv(envKey); v != "" {
            *dst = v
        }
    }

    override(&cfg.DBPath, "DOCINSIGHT_DB")
    override(&cfg.Provider, "AI_PROVIDER")

    override(&cfg.OpenAIKey, "OPENAI_API_KEY")
    override(&cfg.OpenAIModel, "OPENAI_MODEL")
    override(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")

    override(&cfg.AzureKey, "AZURE_OPENAI_API_KEY")
    override(&cfg.AzureEndpoint, "AZURE_OPENAI_ENDPOINT")
    override(&cfg.AzureDeployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
    override(&cfg.AzureAPIVersion, "AZURE_OPENAI_API_VERSION")

    override(&cfg.GeminiKey, "GOOGLE_GEMINI_API_KEY")
    override(&cfg.GeminiModel, "GOOGLE_GEMINI_MODEL")
    override(&cfg.GeminiBaseURL, "GOOGLE_GEMINI_BASE_URL")

    override(&cfg.AnthropicKey, "ANTHROPIC_API_KEY")
    override(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
    override(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")

    override(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
    override(&cfg.OllamaModel, "OLLAMA_MODEL")

    override(&cfg.ConfluenceEmail, "CONFLUENCE_DEFAULT_EMAIL")
    override(&cfg.ConfluenceToken, "CONFLUENCE_DEFAULT_TOKEN")

    if n, ok := envInt("OPENAI_MAX_TOKENS"); ok && n > 0 {
        cfg.MaxTokens = n
    }
    if f, ok := envFloat("OPENAI_TEMPERATURE"); ok && f > 0 {
        cfg.Temperature = f
    }
    if n, ok := envInt("FILE_UPLOAD_MAX_SIZE"); ok && n > 0 {
        cfg.MaxFileSize = int64(n)
    }
    if d, ok := envDuration("CONFLUENCE_TIMEOUT"); ok && d > 0 {
        cfg.ConfluenceTimeout = d
    }
    if d, ok := envDuration("REQUEST_TIMEOUT"); ok && d > 0 {
        cfg.RequestTimeout = d
    }
    if d, ok := envDuration("CACHE_TTL"); ok && d > 0 {
        cfg.InsightCacheTTL = d
        cfg.SummaryCacheTTL = d
        cfg.TopicCacheTTL = d
    }
    if n, ok := envInt("CACHE_CAP"); ok && n > 0 {
        cfg.InsightCacheCap = n
        cfg.SummaryCacheCap = n
        cfg.TopicCacheCap = n
    }
    if b, ok := envBool("VERBOSE"); ok {
        cfg.Verbose = b
    }
}

func envInt(key string) (int, bool) {
    s := strings.TrimSpace(os.Getenv(key))
    if s == "" {
        return 0, false
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        return 0, false
    }
    return n, true
}

func envFloat(key string) (float32, bool) {
    s := strings.TrimSpace(os.Getenv(key))
    if s == "" {
        return 0, false
    }
    f, err := strconv.ParseFloat(s, 32)
    if err != nil {
        return 0, false
    }
    return float32(f), true
}

func envDuration(key string) (time.Duration, bool) {
    return parseDurationValue(os.Getenv(key))
}

// parseDurationValue accepts Go duration syntax ("30s", "1m30s") as well as
// bare numbers, which are read as milliseconds (CONFLUENCE_TIMEOUT=30000).
func parseDurationValue(s string) (time.Duration, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return 0, false
    }
    if n, err := strconv.Atoi(s); err == nil {
        return time.Duration(n) * time.Millisecond, true
    }
    d, err := time.ParseDuration(s)
    if err != nil {
        return 0, false
    }
    return d, true
}

func envBool(key string) (bool, bool) {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
    case "1", "true", "yes", "on":
        return true, true
    case "0", "false", "no", "off":
        return false, true
    case "":
        return false, false
    }
    return false, false
}
