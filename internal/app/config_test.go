package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile_YAML(t *testing.T) {
	path := writeConfigFile(t, "docinsight.yaml", `
db: /data/insights.db
upload:
  maxSize: 5242880
ai:
  provider: anthropic
  maxTokens: 1500
  temperature: 0.5
anthropic:
  key: sk-ant-file
  model: claude-3-haiku
confluence:
  email: bot@example.com
  token: conf-token
  timeout: 45s
cache:
  insights:
    ttl: 15m
    cap: 128
  topics:
    ttl: 30000
timeout: 1m
verbose: true
`)

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if fc.DB != "/data/insights.db" {
		t.Fatalf("DB=%q, want /data/insights.db", fc.DB)
	}
	if fc.Upload.MaxSize != 5242880 {
		t.Fatalf("Upload.MaxSize=%d, want 5242880", fc.Upload.MaxSize)
	}
	if fc.AI.Provider != "anthropic" || fc.AI.MaxTokens != 1500 || fc.AI.Temperature != 0.5 {
		t.Fatalf("AI section = %q/%d/%v", fc.AI.Provider, fc.AI.MaxTokens, fc.AI.Temperature)
	}
	if fc.Anthropic.Key != "sk-ant-file" || fc.Anthropic.Model != "claude-3-haiku" {
		t.Fatalf("Anthropic section = %q/%q", fc.Anthropic.Key, fc.Anthropic.Model)
	}
	if fc.Confluence.Email != "bot@example.com" || fc.Confluence.Token != "conf-token" {
		t.Fatalf("Confluence section = %q/%q", fc.Confluence.Email, fc.Confluence.Token)
	}
	if time.Duration(fc.Confluence.Timeout) != 45*time.Second {
		t.Fatalf("Confluence.Timeout=%v, want 45s", time.Duration(fc.Confluence.Timeout))
	}
	if time.Duration(fc.Cache.Insights.TTL) != 15*time.Minute || fc.Cache.Insights.Cap != 128 {
		t.Fatalf("insights cache = %v/%d", time.Duration(fc.Cache.Insights.TTL), fc.Cache.Insights.Cap)
	}
	if time.Duration(fc.Cache.Topics.TTL) != 30*time.Second {
		t.Fatalf("Topics.TTL=%v, bare numbers should read as milliseconds", time.Duration(fc.Cache.Topics.TTL))
	}
	if time.Duration(fc.Timeout) != time.Minute {
		t.Fatalf("Timeout=%v, want 1m", time.Duration(fc.Timeout))
	}
	if !fc.Verbose {
		t.Fatalf("Verbose should be true")
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	path := writeConfigFile(t, "docinsight.json", `{
  "db": "insights.db",
  "ai": {"provider": "google"},
  "gemini": {"key": "g-key", "model": "gemini-1.5-flash"},
  "confluence": {"timeout": 5000},
  "timeout": "90s"
}`)

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if fc.DB != "insights.db" || fc.AI.Provider != "google" {
		t.Fatalf("parsed %q/%q", fc.DB, fc.AI.Provider)
	}
	if fc.Gemini.Key != "g-key" || fc.Gemini.Model != "gemini-1.5-flash" {
		t.Fatalf("Gemini section = %q/%q", fc.Gemini.Key, fc.Gemini.Model)
	}
	if time.Duration(fc.Confluence.Timeout) != 5*time.Second {
		t.Fatalf("Confluence.Timeout=%v, JSON numbers should read as milliseconds", time.Duration(fc.Confluence.Timeout))
	}
	if time.Duration(fc.Timeout) != 90*time.Second {
		t.Fatalf("Timeout=%v, want 90s", time.Duration(fc.Timeout))
	}
}

func TestLoadConfigFile_ExtensionlessFallsBackToYAMLThenJSON(t *testing.T) {
	path := writeConfigFile(t, "docinsight.conf", "db: fallback.db\n")
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if fc.DB != "fallback.db" {
		t.Fatalf("DB=%q, want fallback.db", fc.DB)
	}

	bad := writeConfigFile(t, "broken.conf", "{{{\n")
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatalf("unparseable config should fail")
	}
}

func TestLoadConfigFile_InvalidDuration(t *testing.T) {
	path := writeConfigFile(t, "docinsight.yaml", "timeout: soon\n")
	if _, err := LoadConfigFile(path); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("want invalid duration error, got %v", err)
	}
}

func TestLoadConfigFile_NullDurationIsZero(t *testing.T) {
	path := writeConfigFile(t, "docinsight.yaml", "timeout:\n")
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if fc.Timeout != 0 {
		t.Fatalf("Timeout=%v, want 0 for null", time.Duration(fc.Timeout))
	}
}

func TestApplyFileConfig_FillsOnlyUnset(t *testing.T) {
	var fc FileConfig
	fc.DB = "file.db"
	fc.AI.Provider = "openai"
	fc.OpenAI.Key = "sk-file"

	cfg := Config{Provider: "demo"}
	ApplyFileConfig(&cfg, fc)

	if cfg.Provider != "demo" {
		t.Fatalf("Provider=%q, explicit value should win over file", cfg.Provider)
	}
	if cfg.DBPath != "file.db" {
		t.Fatalf("DBPath=%q, want file.db", cfg.DBPath)
	}
	if cfg.OpenAIKey != "sk-file" {
		t.Fatalf("OpenAIKey=%q, want sk-file", cfg.OpenAIKey)
	}
}

func TestApplyFileConfig_CacheSections(t *testing.T) {
	var fc FileConfig
	fc.Cache.Insights.TTL = duration(15 * time.Minute)
	fc.Cache.Insights.Cap = 32
	fc.Cache.Summaries.TTL = duration(time.Hour)
	fc.Cache.Topics.Cap = 8

	var cfg Config
	ApplyFileConfig(&cfg, fc)

	if cfg.InsightCacheTTL != 15*time.Minute || cfg.InsightCacheCap != 32 {
		t.Fatalf("insight cache = %v/%d", cfg.InsightCacheTTL, cfg.InsightCacheCap)
	}
	if cfg.SummaryCacheTTL != time.Hour || cfg.SummaryCacheCap != 0 {
		t.Fatalf("summary cache = %v/%d", cfg.SummaryCacheTTL, cfg.SummaryCacheCap)
	}
	if cfg.TopicCacheTTL != 0 || cfg.TopicCacheCap != 8 {
		t.Fatalf("topic cache = %v/%d", cfg.TopicCacheTTL, cfg.TopicCacheCap)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(Config{}); err != nil {
		t.Fatalf("zero config should validate: %v", err)
	}
	if err := ValidateConfig(Config{Provider: "Demo"}); err != nil {
		t.Fatalf("provider names are case-insensitive: %v", err)
	}

	bad := []Config{
		{Provider: "bard"},
		{MaxFileSize: -1},
		{MaxTokens: -5},
		{Temperature: -0.1},
		{Temperature: 2.5},
		{RequestTimeout: -time.Second},
		{InsightCacheTTL: -time.Minute},
		{TopicCacheCap: -2},
	}
	for i, cfg := range bad {
		if ValidateConfig(cfg) == nil {
			t.Fatalf("config %d should fail validation", i)
		}
	}
}

// Full precedence chain: flags beat env, env beats file, file beats defaults.
func TestConfigPrecedence(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AI_PROVIDER", "")

	var fc FileConfig
	fc.AI.Provider = "openai"
	fc.OpenAI.Model = "gpt-3.5-turbo"
	fc.OpenAI.Key = "sk-file"

	cfg := Config{OpenAIKey: "sk-flag"}
	ApplyFileConfig(&cfg, fc)
	ApplyEnvOverrides(&cfg)

	if cfg.OpenAIKey != "sk-flag" {
		t.Fatalf("OpenAIKey=%q, flag value should win", cfg.OpenAIKey)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("OpenAIModel=%q, env should beat file", cfg.OpenAIModel)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("Provider=%q, file should fill unset field", cfg.Provider)
	}
}
