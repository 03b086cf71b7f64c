package app

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates os.Environ.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
    t.Setenv("FOO", "")
    t.Setenv("BAR", "")
    t.Setenv("BAZ", "")

    dir := t.TempDir()
    envPath := filepath.Join(dir, ".env.test")
    content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta value\"\nexport BAZ='gamma'\n"
    if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
        t.Fatalf("write dotenv: %v", err)
    }

    if err := LoadEnvFiles(envPath); err != nil {
        t.Fatalf("LoadEnvFiles error: %v", err)
    }

    if got := os.Getenv("FOO"); got != "alpha" {
        t.Fatalf("FOO=%q, want alpha", got)
    }
    if got := os.Getenv("BAR"); got != "beta value" {
        t.Fatalf("BAR=%q, want beta value", got)
    }
    if got := os.Getenv("BAZ"); got != "gamma" {
        t.Fatalf("BAZ=%q, want gamma", got)
    }
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
    t.Setenv("K", "")
    dir := t.TempDir()
    a := filepath.Join(dir, ".env.a")
    b := filepath.Join(dir, ".env.b")
    if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil { t.Fatalf("write a: %v", err) }
    if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil { t.Fatalf("write b: %v", err) }

    if err := LoadEnvFiles(a, b); err != nil {
        t.Fatalf("LoadEnvFiles error: %v", err)
    }
    if got := os.Getenv("K"); got != "second" {
        t.Fatalf("override order failed: got %q, want second", got)
    }
}

func TestLoadEnvFiles_MissingFileIgnored(t *testing.T) {
    if err := LoadEnvFiles(filepath.Join(t.TempDir(), "absent.env")); err != nil {
        t.Fatalf("missing dotenv should not fail: %v", err)
    }
}

func TestParseEnvLine(t *testing.T) {
    cases := []struct {
        line     string
        key, val string
        ok       bool
    }{
        {"KEY=value", "KEY", "value", true},
        {"  KEY =  value  ", "KEY", "value", true},
        {"export KEY=value", "KEY", "value", true},
        {`KEY="quoted value"`, "KEY", "quoted value", true},
        {"KEY='single'", "KEY", "single", true},
        {"KEY=", "KEY", "", true},
        {"# comment", "", "", false},
        {"", "", "", false},
        {"no equals sign", "", "", false},
        {"=value", "", "", false},
    }
    for _, tc := range cases {
        key, val, ok := parseEnvLine(tc.line)
        if ok != tc.ok || key != tc.key || val != tc.val {
            t.Fatalf("parseEnvLine(%q) = %q, %q, %t; want %q, %q, %t", tc.line, key, val, ok, tc.key, tc.val, tc.ok)
        }
    }
}

// ApplyEnvToConfig fills unset fields from the environment, including bare
// millisecond timeouts and the blanket cache settings.
func TestApplyEnvToConfig_FillsUnset(t *testing.T) {
    t.Setenv("AI_PROVIDER", "openai")
    t.Setenv("OPENAI_API_KEY", "sk-env")
    t.Setenv("OPENAI_MAX_TOKENS", "512")
    t.Setenv("OPENAI_TEMPERATURE", "0.3")
    t.Setenv("CONFLUENCE_TIMEOUT", "30000")
    t.Setenv("REQUEST_TIMEOUT", "2m")
    t.Setenv("CACHE_TTL", "10m")
    t.Setenv("CACHE_CAP", "64")
    t.Setenv("VERBOSE", "yes")

    var cfg Config
    cfg.SummaryCacheTTL = 5 * time.Minute
    ApplyEnvToConfig(&cfg)

    if cfg.Provider != "openai" {
        t.Fatalf("Provider=%q, want openai", cfg.Provider)
    }
    if cfg.OpenAIKey != "sk-env" {
        t.Fatalf("OpenAIKey=%q, want sk-env", cfg.OpenAIKey)
    }
    if cfg.MaxTokens != 512 {
        t.Fatalf("MaxTokens=%d, want 512", cfg.MaxTokens)
    }
    if cfg.Temperature != 0.3 {
        t.Fatalf("Temperature=%v, want 0.3", cfg.Temperature)
    }
    if cfg.ConfluenceTimeout != 30*time.Second {
        t.Fatalf("ConfluenceTimeout=%v, want 30s", cfg.ConfluenceTimeout)
    }
    if cfg.RequestTimeout != 2*time.Minute {
        t.Fatalf("RequestTimeout=%v, want 2m", cfg.RequestTimeout)
    }
    if cfg.InsightCacheTTL != 10*time.Minute || cfg.TopicCacheTTL != 10*time.Minute {
        t.Fatalf("cache ttls %v/%v, want 10m from CACHE_TTL", cfg.InsightCacheTTL, cfg.TopicCacheTTL)
    }
    if cfg.SummaryCacheTTL != 5*time.Minute {
        t.Fatalf("SummaryCacheTTL=%v, preset value should survive", cfg.SummaryCacheTTL)
    }
    if cfg.InsightCacheCap != 64 || cfg.SummaryCacheCap != 64 || cfg.TopicCacheCap != 64 {
        t.Fatalf("cache caps %d/%d/%d, want 64 from CACHE_CAP", cfg.InsightCacheCap, cfg.SummaryCacheCap, cfg.TopicCacheCap)
    }
    if !cfg.Verbose {
        t.Fatalf("VERBOSE=yes should set Verbose")
    }
}

func TestApplyEnvToConfig_ExplicitValuesWin(t *testing.T) {
    t.Setenv("AI_PROVIDER", "ollama")
    t.Setenv("OPENAI_MAX_TOKENS", "512")

    cfg := Config{Provider: "demo", MaxTokens: 100}
    ApplyEnvToConfig(&cfg)

    if cfg.Provider != "demo" {
        t.Fatalf("Provider=%q, explicit value should win over env", cfg.Provider)
    }
    if cfg.MaxTokens != 100 {
        t.Fatalf("MaxTokens=%d, explicit value should win over env", cfg.MaxTokens)
    }
}

func TestApplyEnvOverrides_WinOverConfig(t *testing.T) {
    t.Setenv("AI_PROVIDER", "ollama")
    t.Setenv("OLLAMA_MODEL", "mistral")
    t.Setenv("OPENAI_MAX_TOKENS", "900")

    cfg := Config{Provider: "demo", MaxTokens: 100, OllamaModel: "llama2"}
    ApplyEnvOverrides(&cfg)

    if cfg.Provider != "ollama" {
        t.Fatalf("Provider=%q, want ollama from env override", cfg.Provider)
    }
    if cfg.OllamaModel != "mistral" {
        t.Fatalf("OllamaModel=%q, want mistral from env override", cfg.OllamaModel)
    }
    if cfg.MaxTokens != 900 {
        t.Fatalf("MaxTokens=%d, want 900 from env override", cfg.MaxTokens)
    }
}

func TestApplyEnvOverrides_EmptyEnvLeavesConfig(t *testing.T) {
    t.Setenv("AI_PROVIDER", "")
    t.Setenv("OPENAI_MAX_TOKENS", "")

    cfg := Config{Provider: "demo", MaxTokens: 100}
    ApplyEnvOverrides(&cfg)

    if cfg.Provider != "demo" || cfg.MaxTokens != 100 {
        t.Fatalf("unset env should leave config alone, got %q/%d", cfg.Provider, cfg.MaxTokens)
    }
}

func TestParseDurationValue(t *testing.T) {
    cases := []struct {
        in   string
        want time.Duration
        ok   bool
    }{
        {"30000", 30 * time.Second, true},
        {"45s", 45 * time.Second, true},
        {"1m30s", 90 * time.Second, true},
        {" 250 ", 250 * time.Millisecond, true},
        {"", 0, false},
        {"soon", 0, false},
    }
    for _, tc := range cases {
        got, ok := parseDurationValue(tc.in)
        if ok != tc.ok || got != tc.want {
            t.Fatalf("parseDurationValue(%q) = %v, %t; want %v, %t", tc.in, got, ok, tc.want, tc.ok)
        }
    }
}
