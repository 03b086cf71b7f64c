package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
    DB string `yaml:"db" json:"db"`

    Upload struct {
        MaxSize int64 `yaml:"maxSize" json:"maxSize"`
    } `yaml:"upload" json:"upload"`

    AI struct {
        Provider    string  `yaml:"provider" json:"provider"`
        MaxTokens   int     `yaml:"maxTokens" json:"maxTokens"`
        Temperature float32 `yaml:"temperature" json:"temperature"`
    } `yaml:"ai" json:"ai"`

    OpenAI struct {
        Key   string `yaml:"key" json:"key"`
        Model string `yaml:"model" json:"model"`
        Base  string `yaml:"base" json:"base"`
    } `yaml:"openai" json:"openai"`

    Azure struct {
        Key        string `yaml:"key" json:"key"`
        Endpoint   string `yaml:"endpoint" json:"endpoint"`
        Deployment string `yaml:"deployment" json:"deployment"`
        APIVersion string `yaml:"apiVersion" json:"apiVersion"`
    } `yaml:"azure" json:"azure"`

    Gemini struct {
        Key   string `yaml:"key" json:"key"`
        Model string `yaml:"model" json:"model"`
        Base  string `yaml:"base" json:"base"`
    } `yaml:"gemini" json:"gemini"`

    Anthropic struct {
        Key   string `yaml:"key" json:"key"`
        Model string `yaml:"model" json:"model"`
        Base  string `yaml:"base" json:"base"`
    } `yaml:"anthropic" json:"anthropic"`

    Ollama struct {
        Base  string `yaml:"base" json:"base"`
        Model string `yaml:"model" json:"model"`
    } `yaml:"ollama" json:"ollama"`

    Confluence struct {
        Email   string   `yaml:"email" json:"email"`
        Token   string   `yaml:"token" json:"token"`
        Timeout duration `yaml:"timeout" json:"timeout"`
    } `yaml:"confluence" json:"confluence"`

    Cache struct {
        Insights  cacheSection `yaml:"insights" json:"insights"`
        Summaries cacheSection `yaml:"summaries" json:"summaries"`
        Topics    cacheSection `yaml:"topics" json:"topics"`
    } `yaml:"cache" json:"cache"`

    Timeout duration `yaml:"timeout" json:"timeout"`
    Verbose bool     `yaml:"verbose" json:"verbose"`
}

type cacheSection struct {
    TTL duration `yaml:"ttl" json:"ttl"`
    Cap int      `yaml:"cap" json:"cap"`
}

// duration accepts Go duration strings ("30s") and bare millisecond numbers
// in config files.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
    if strings.TrimSpace(value.Value) == "" {
        *d = 0
        return nil
    }
    v, ok := parseDurationValue(value.Value)
    if !ok {
        return fmt.Errorf("invalid duration %q", value.Value)
    }
    *d = duration(v)
    return nil
}

func (d *duration) UnmarshalJSON(b []byte) error {
    var s string
    if err := json.Unmarshal(b, &s); err == nil {
        if strings.TrimSpace(s) == "" {
            *d = 0
            return nil
        }
        v, ok := parseDurationValue(s)
        if !ok {
            return fmt.Errorf("invalid duration %q", s)
        }
        *d = duration(v)
        return nil
    }
    var n int64
    if err := json.Unmarshal(b, &n); err != nil {
        return fmt.Errorf("invalid duration %s", b)
    }
    *d = duration(time.Duration(n) * time.Millisecond)
    return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// that are still zero in cfg. Flags leave their fields zero unless given on
// the command line, so a zero field means "unset" and may be filled from the
// file while explicit flags are preserved.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if cfg.DBPath == "" && fc.DB != "" { cfg.DBPath = fc.DB }
    if cfg.MaxFileSize == 0 && fc.Upload.MaxSize > 0 { cfg.MaxFileSize = fc.Upload.MaxSize }

    if cfg.Provider == "" && fc.AI.Provider != "" { cfg.Provider = fc.AI.Provider }
    if cfg.MaxTokens == 0 && fc.AI.MaxTokens > 0 { cfg.MaxTokens = fc.AI.MaxTokens }
    if cfg.Temperature == 0 && fc.AI.Temperature > 0 { cfg.Temperature = fc.AI.Temperature }

    if cfg.OpenAIKey == "" && fc.OpenAI.Key != "" { cfg.OpenAIKey = fc.OpenAI.Key }
    if cfg.OpenAIModel == "" && fc.OpenAI.Model != "" { cfg.OpenAIModel = fc.OpenAI.Model }
    if cfg.OpenAIBaseURL == "" && fc.OpenAI.Base != "" { cfg.OpenAIBaseURL = fc.OpenAI.Base }

    if cfg.AzureKey == "" && fc.Azure.Key != "" { cfg.AzureKey = fc.Azure.Key }
    if cfg.AzureEndpoint == "" && fc.Azure.Endpoint != "" { cfg.AzureEndpoint = fc.Azure.Endpoint }
    if cfg.AzureDeployment == "" && fc.Azure.Deployment != "" { cfg.AzureDeployment = fc.Azure.Deployment }
    if cfg.AzureAPIVersion == "" && fc.Azure.APIVersion != "" { cfg.AzureAPIVersion = fc.Azure.APIVersion }

    if cfg.GeminiKey == "" && fc.Gemini.Key != "" { cfg.GeminiKey = fc.Gemini.Key }
    if cfg.GeminiModel == "" && fc.Gemini.Model != "" { cfg.GeminiModel = fc.Gemini.Model }
    if cfg.GeminiBaseURL == "" && fc.Gemini.Base != "" { cfg.GeminiBaseURL = fc.Gemini.Base }

    if cfg.AnthropicKey == "" && fc.Anthropic.Key != "" { cfg.AnthropicKey = fc.Anthropic.Key }
    if cfg.AnthropicModel == "" && fc.Anthropic.Model != "" { cfg.AnthropicModel = fc.Anthropic.Model }
    if cfg.AnthropicBaseURL == "" && fc.Anthropic.Base != "" { cfg.AnthropicBaseURL = fc.Anthropic.Base }

    if cfg.OllamaBaseURL == "" && fc.Ollama.Base != "" { cfg.OllamaBaseURL = fc.Ollama.Base }
    if cfg.OllamaModel == "" && fc.Ollama.Model != "" { cfg.OllamaModel = fc.Ollama.Model }

    if cfg.ConfluenceEmail == "" && fc.Confluence.Email != "" { cfg.ConfluenceEmail = fc.Confluence.Email }
    if cfg.ConfluenceToken == "" && fc.Confluence.Token != "" { cfg.ConfluenceToken = fc.Confluence.Token }
    if cfg.ConfluenceTimeout == 0 && fc.Confluence.Timeout > 0 { cfg.ConfluenceTimeout = time.Duration(fc.Confluence.Timeout) }

    if cfg.InsightCacheTTL == 0 && fc.Cache.Insights.TTL > 0 { cfg.InsightCacheTTL = time.Duration(fc.Cache.Insights.TTL) }
    if cfg.InsightCacheCap == 0 && fc.Cache.Insights.Cap > 0 { cfg.InsightCacheCap = fc.Cache.Insights.Cap }
    if cfg.SummaryCacheTTL == 0 && fc.Cache.Summaries.TTL > 0 { cfg.SummaryCacheTTL = time.Duration(fc.Cache.Summaries.TTL) }
    if cfg.SummaryCacheCap == 0 && fc.Cache.Summaries.Cap > 0 { cfg.SummaryCacheCap = fc.Cache.Summaries.Cap }
    if cfg.TopicCacheTTL == 0 && fc.Cache.Topics.TTL > 0 { cfg.TopicCacheTTL = time.Duration(fc.Cache.Topics.TTL) }
    if cfg.TopicCacheCap == 0 && fc.Cache.Topics.Cap > 0 { cfg.TopicCacheCap = fc.Cache.Topics.Cap }

    if cfg.RequestTimeout == 0 && fc.Timeout > 0 { cfg.RequestTimeout = time.Duration(fc.Timeout) }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }
}

// ValidateConfig performs minimal schema validation for the merged settings.
func ValidateConfig(cfg Config) error {
    switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
    case "", "demo", "openai", "azure", "google", "anthropic", "ollama":
    default:
        return fmt.Errorf("config: unknown ai provider %q (expected demo, openai, azure, google, anthropic or ollama)", cfg.Provider)
    }
    if cfg.MaxFileSize < 0 {
        return errors.New("config: upload.maxSize must not be negative")
    }
    if cfg.MaxTokens < 0 {
        return errors.New("config: ai.maxTokens must not be negative")
    }
    if cfg.Temperature < 0 || cfg.Temperature > 2 {
        return errors.New("config: ai.temperature must be between 0 and 2")
    }
    if cfg.ConfluenceTimeout < 0 || cfg.RequestTimeout < 0 {
        return errors.New("config: negative timeouts are not allowed")
    }
    if cfg.InsightCacheTTL < 0 || cfg.SummaryCacheTTL < 0 || cfg.TopicCacheTTL < 0 {
        return errors.New("config: negative cache ttls are not allowed")
    }
    if cfg.InsightCacheCap < 0 || cfg.SummaryCacheCap < 0 || cfg.TopicCacheCap < 0 {
        return errors.New("config: negative cache capacities are not allowed")
    }
    return nil
}
