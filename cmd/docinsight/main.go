package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docinsight/internal/app"
	"github.com/hyperifyio/docinsight/internal/store"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		envFiles   string

		dbPath            string
		providerName      string
		maxTokens         int
		temperature       float64
		maxFileSize       int64
		timeout           time.Duration
		cacheTTL          time.Duration
		cacheCap          int
		verbose           bool
		openaiKey         string
		openaiModel       string
		openaiBase        string
		azureKey          string
		azureEndpoint     string
		azureDeployment   string
		azureAPIVersion   string
		geminiKey         string
		geminiModel       string
		geminiBase        string
		anthropicKey      string
		anthropicModel    string
		anthropicBase     string
		ollamaBase        string
		ollamaModel       string
		confluenceEmail   string
		confluenceToken   string
		confluenceTimeout time.Duration

		cmd         command
		docIDs      string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (default "+app.DefaultDBPath+")")
	flag.StringVar(&providerName, "provider", "", "AI provider: demo, openai, azure, google, anthropic or ollama (default demo)")
	flag.IntVar(&maxTokens, "ai.maxTokens", 0, "Maximum tokens per generated answer (default 2000)")
	flag.Float64Var(&temperature, "ai.temperature", 0, "Sampling temperature between 0 and 2 (default 0.7)")
	flag.Int64Var(&maxFileSize, "upload.maxSize", 0, "Maximum upload size in bytes (default 10 MiB)")
	flag.DurationVar(&timeout, "timeout", 0, "Per-request provider timeout (default 60s)")
	flag.DurationVar(&cacheTTL, "cache.ttl", 0, "Time to live for cached answers (default 30m)")
	flag.IntVar(&cacheCap, "cache.cap", 0, "Maximum entries per answer cache (default 256)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")

	flag.StringVar(&openaiKey, "openai.key", "", "OpenAI API key")
	flag.StringVar(&openaiModel, "openai.model", "", "OpenAI model (default gpt-4o-mini)")
	flag.StringVar(&openaiBase, "openai.base", "", "OpenAI-compatible base URL")
	flag.StringVar(&azureKey, "azure.key", "", "Azure OpenAI API key")
	flag.StringVar(&azureEndpoint, "azure.endpoint", "", "Azure OpenAI endpoint URL")
	flag.StringVar(&azureDeployment, "azure.deployment", "", "Azure OpenAI deployment name (default gpt-35-turbo)")
	flag.StringVar(&azureAPIVersion, "azure.apiVersion", "", "Azure OpenAI API version (default 2024-02-15-preview)")
	flag.StringVar(&geminiKey, "gemini.key", "", "Google Gemini API key")
	flag.StringVar(&geminiModel, "gemini.model", "", "Google Gemini model (default gemini-pro)")
	flag.StringVar(&geminiBase, "gemini.base", "", "Google Gemini base URL")
	flag.StringVar(&anthropicKey, "anthropic.key", "", "Anthropic API key")
	flag.StringVar(&anthropicModel, "anthropic.model", "", "Anthropic model (default claude-3-sonnet-20240229)")
	flag.StringVar(&anthropicBase, "anthropic.base", "", "Anthropic base URL")
	flag.StringVar(&ollamaBase, "ollama.base", "", "Ollama base URL (default http://localhost:11434)")
	flag.StringVar(&ollamaModel, "ollama.model", "", "Ollama model (default llama2)")
	flag.StringVar(&confluenceEmail, "confluence.email", "", "Default Confluence account email")
	flag.StringVar(&confluenceToken, "confluence.token", "", "Default Confluence API token")
	flag.DurationVar(&confluenceTimeout, "confluence.timeout", 0, "Confluence fetch timeout (default 30s)")

	flag.StringVar(&cmd.add, "add", "", "Add a local document (.pdf, .doc, .docx, .txt)")
	flag.StringVar(&cmd.confluence, "confluence", "", "Import a Confluence page by URL")
	flag.StringVar(&cmd.email, "email", "", "Confluence email for this import only")
	flag.StringVar(&cmd.token, "token", "", "Confluence API token for this import only")
	flag.StringVar(&cmd.ask, "ask", "", "Generate insights for a query")
	flag.StringVar(&docIDs, "docs", "", "Comma-separated document ids to analyze with -ask (default all)")
	flag.Int64Var(&cmd.summarize, "summarize", 0, "Summarize the document with this id")
	flag.Int64Var(&cmd.topics, "topics", 0, "List key topics of the document with this id")
	flag.BoolVar(&cmd.list, "list", false, "List stored documents")
	flag.StringVar(&cmd.search, "search", "", "Search documents by name or content")
	flag.BoolVar(&cmd.stats, "stats", false, "Show document statistics")
	flag.Int64Var(&cmd.delete, "delete", 0, "Delete the document with this id")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("docinsight %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.LoadEnvFiles(splitList(envFiles)...); err != nil {
		log.Error().Err(err).Msg("load env files")
		os.Exit(1)
	}

	cfg := app.Config{
		DBPath:            dbPath,
		MaxFileSize:       maxFileSize,
		Provider:          providerName,
		MaxTokens:         maxTokens,
		Temperature:       float32(temperature),
		OpenAIKey:         openaiKey,
		OpenAIModel:       openaiModel,
		OpenAIBaseURL:     openaiBase,
		AzureKey:          azureKey,
		AzureEndpoint:     azureEndpoint,
		AzureDeployment:   azureDeployment,
		AzureAPIVersion:   azureAPIVersion,
		GeminiKey:         geminiKey,
		GeminiModel:       geminiModel,
		GeminiBaseURL:     geminiBase,
		AnthropicKey:      anthropicKey,
		AnthropicModel:    anthropicModel,
		AnthropicBaseURL:  anthropicBase,
		OllamaBaseURL:     ollamaBase,
		OllamaModel:       ollamaModel,
		ConfluenceEmail:   confluenceEmail,
		ConfluenceToken:   confluenceToken,
		ConfluenceTimeout: confluenceTimeout,
		RequestTimeout:    timeout,
		Verbose:           verbose,
	}
	if cacheTTL > 0 {
		cfg.InsightCacheTTL, cfg.SummaryCacheTTL, cfg.TopicCacheTTL = cacheTTL, cacheTTL, cacheTTL
	}
	if cacheCap > 0 {
		cfg.InsightCacheCap, cfg.SummaryCacheCap, cfg.TopicCacheCap = cacheCap, cacheCap, cacheCap
	}

	// Precedence: flags beat env, env beats file, file beats defaults. Each
	// apply step only fills fields still unset.
	app.ApplyEnvToConfig(&cfg)
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	ids, err := parseIDList(docIDs)
	if err != nil {
		log.Error().Err(err).Msg("invalid -docs list")
		os.Exit(2)
	}
	cmd.ids = ids

	if cmd.count() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -add, -confluence, -ask, -summarize, -topics, -list, -search, -stats or -delete is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, cmd); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// command carries the single selected operation and its arguments.
type command struct {
	add        string
	confluence string
	email      string
	token      string
	ask        string
	ids        []int64
	summarize  int64
	topics     int64
	list       bool
	search     string
	stats      bool
	delete     int64
}

func (c command) count() int {
	n := 0
	if c.add != "" {
		n++
	}
	if c.confluence != "" {
		n++
	}
	if c.ask != "" {
		n++
	}
	if c.summarize != 0 {
		n++
	}
	if c.topics != 0 {
		n++
	}
	if c.list {
		n++
	}
	if c.search != "" {
		n++
	}
	if c.stats {
		n++
	}
	if c.delete != 0 {
		n++
	}
	return n
}

func run(cfg app.Config, cmd command) error {
	ctx := context.Background()

	svc, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	defer svc.Close()

	switch {
	case cmd.add != "":
		doc, err := svc.AddFile(ctx, cmd.add)
		if err != nil {
			return err
		}
		fmt.Printf("added document %d: %s (%s, %d bytes)\n", doc.ID, doc.Name, doc.TypeLabel, doc.Size)
	case cmd.confluence != "":
		doc, err := svc.AddConfluence(ctx, cmd.confluence, cmd.email, cmd.token)
		if err != nil {
			return err
		}
		fmt.Printf("imported document %d: %s (%d bytes)\n", doc.ID, doc.Name, doc.Size)
	case cmd.ask != "":
		res, err := svc.Ask(ctx, cmd.ask, cmd.ids)
		if err != nil {
			return err
		}
		if res.Cached {
			log.Debug().Msg("answer served from cache")
		}
		fmt.Println(res.Text)
	case cmd.summarize != 0:
		text, err := svc.Summarize(ctx, cmd.summarize)
		if err != nil {
			return err
		}
		fmt.Println(text)
	case cmd.topics != 0:
		topics, err := svc.Topics(ctx, cmd.topics)
		if err != nil {
			return err
		}
		for _, topic := range topics {
			fmt.Println("- " + topic)
		}
	case cmd.list:
		docs, err := svc.List(ctx)
		if err != nil {
			return err
		}
		printDocuments(docs)
	case cmd.search != "":
		docs, err := svc.Search(ctx, cmd.search)
		if err != nil {
			return err
		}
		printDocuments(docs)
	case cmd.stats:
		st, err := svc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("documents: %d (%d uploaded, %d confluence)\n", st.Total, st.Uploaded, st.Confluence)
		fmt.Printf("total size: %d bytes\n", st.TotalSize)
	case cmd.delete != 0:
		if err := svc.Delete(ctx, cmd.delete); err != nil {
			return err
		}
		fmt.Printf("deleted document %d\n", cmd.delete)
	}
	return nil
}

func printDocuments(docs []store.Document) {
	if len(docs) == 0 {
		fmt.Println("no documents")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSOURCE\tTYPE\tSIZE\tADDED")
	for _, d := range docs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", d.ID, d.Name, d.Source, d.TypeLabel, d.Size, d.UploadedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, p := range splitList(s) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad document id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
