package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docinsight/internal/cache"
	"github.com/hyperifyio/docinsight/internal/confluence"
	"github.com/hyperifyio/docinsight/internal/extract"
	"github.com/hyperifyio/docinsight/internal/insight"
	"github.com/hyperifyio/docinsight/internal/provider"
	"github.com/hyperifyio/docinsight/internal/store"
)

// Service wires the document store, the wiki importer and the insight
// generator behind the operations the CLI exposes.
type Service struct {
	cfg        Config
	store      *store.Store
	confluence *confluence.Client
	insights   *insight.Generator
}

// ErrEmptyFile is returned when an uploaded file has no bytes at all.
var ErrEmptyFile = fmt.Errorf("file is empty")

func New(cfg Config) (*Service, error) {
	st, err := store.Open(cfg.dbPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	httpClient := newHTTPClient()
	gen, err := provider.New(provider.Config{
		Provider:         cfg.Provider,
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		OpenAIKey:        cfg.OpenAIKey,
		OpenAIModel:      cfg.OpenAIModel,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		AzureKey:         cfg.AzureKey,
		AzureEndpoint:    cfg.AzureEndpoint,
		AzureDeployment:  cfg.AzureDeployment,
		AzureAPIVersion:  cfg.AzureAPIVersion,
		GeminiKey:        cfg.GeminiKey,
		GeminiModel:      cfg.GeminiModel,
		GeminiBaseURL:    cfg.GeminiBaseURL,
		AnthropicKey:     cfg.AnthropicKey,
		AnthropicModel:   cfg.AnthropicModel,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		OllamaBaseURL:    cfg.OllamaBaseURL,
		OllamaModel:      cfg.OllamaModel,
		HTTPClient:       httpClient,
		Timeout:          cfg.requestTimeout(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	s := &Service{
		cfg:   cfg,
		store: st,
		confluence: &confluence.Client{
			HTTPClient:   httpClient,
			UserAgent:    "docinsight/1.0 (+https://github.com/hyperifyio/docinsight)",
			Timeout:      cfg.confluenceTimeout(),
			DefaultEmail: cfg.ConfluenceEmail,
			DefaultToken: cfg.ConfluenceToken,
		},
		insights: &insight.Generator{
			Provider:     gen,
			InsightCache: cache.NewMemo(cfg.cacheTTL(cfg.InsightCacheTTL), cfg.cacheCap(cfg.InsightCacheCap)),
			SummaryCache: cache.NewMemo(cfg.cacheTTL(cfg.SummaryCacheTTL), cfg.cacheCap(cfg.SummaryCacheCap)),
			TopicCache:   cache.NewMemo(cfg.cacheTTL(cfg.TopicCacheTTL), cfg.cacheCap(cfg.TopicCacheCap)),
		},
	}
	log.Debug().Str("db", st.Path()).Str("provider", gen.Name()).Msg("service ready")
	return s, nil
}

func (s *Service) Close() error {
	return s.store.Close()
}

// Provider names the configured insight backend.
func (s *Service) Provider() string {
	return s.insights.Provider.Name()
}

// AddFile extracts text from a local document and persists it. Validation
// mirrors the upload rules: no empty files, a size cap, and only supported
// extensions.
func (s *Service) AddFile(ctx context.Context, path string) (store.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return store.Document{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return store.Document{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return store.Document{}, ErrEmptyFile
	}
	if info.Size() > s.cfg.maxFileSize() {
		return store.Document{}, fmt.Errorf("file too large: %.2f MB exceeds limit", float64(info.Size())/1024.0/1024.0)
	}
	name := filepath.Base(path)
	if !extract.Supported(name) {
		return store.Document{}, fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, strings.ToLower(filepath.Ext(name)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return store.Document{}, fmt.Errorf("read file: %w", err)
	}
	res, err := extract.Extract(data, name)
	if err != nil {
		return store.Document{}, fmt.Errorf("extract %s: %w", name, err)
	}

	doc := store.Document{
		Name:       name,
		Source:     store.SourceUpload,
		Extension:  res.Meta.Extension,
		TypeLabel:  res.Meta.TypeLabel,
		Size:       res.Meta.Size,
		Content:    res.Text,
		UploadedAt: time.Now().UTC(),
	}
	id, err := s.store.Save(ctx, doc)
	if err != nil {
		return store.Document{}, err
	}
	doc.ID = id
	log.Info().Int64("id", id).Str("name", name).Int("chars", len(res.Text)).Msg("document added")
	return doc, nil
}

// AddConfluence imports a wiki page as a document. Explicit credentials win
// over the configured defaults.
func (s *Service) AddConfluence(ctx context.Context, pageURL, email, token string) (store.Document, error) {
	page, err := s.confluence.FetchPage(ctx, pageURL, email, token)
	if err != nil {
		return store.Document{}, err
	}

	doc := store.Document{
		Name:       page.Title,
		Source:     store.SourceConfluence,
		Extension:  ".txt",
		TypeLabel:  extract.TypeLabel(".txt"),
		Size:       int64(len(page.Body)),
		Content:    page.Body,
		URL:        pageURL,
		UploadedAt: time.Now().UTC(),
	}
	id, err := s.store.Save(ctx, doc)
	if err != nil {
		return store.Document{}, err
	}
	doc.ID = id
	log.Info().Int64("id", id).Str("title", page.Title).Int("chars", len(page.Body)).Msg("confluence page imported")
	return doc, nil
}

// Ask generates insights for a query over the named documents, or over every
// stored document when ids is empty.
func (s *Service) Ask(ctx context.Context, query string, ids []int64) (insight.Result, error) {
	docs, err := s.selectDocuments(ctx, ids)
	if err != nil {
		return insight.Result{}, err
	}
	req := insight.Request{Query: query, Documents: make([]insight.Document, 0, len(docs))}
	for _, d := range docs {
		req.Documents = append(req.Documents, insightDocument(d))
	}
	return s.insights.Generate(ctx, req)
}

// Summarize produces a short summary of one stored document.
func (s *Service) Summarize(ctx context.Context, id int64) (string, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.insights.Summarize(ctx, insightDocument(d))
}

// Topics lists the key topics of one stored document.
func (s *Service) Topics(ctx context.Context, id int64) ([]string, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.insights.Topics(ctx, insightDocument(d))
}

func (s *Service) List(ctx context.Context) ([]store.Document, error) {
	return s.store.List(ctx)
}

func (s *Service) Search(ctx context.Context, term string) ([]store.Document, error) {
	return s.store.Search(ctx, term)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("id", id).Msg("document deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx)
}

// selectDocuments loads the requested documents in ascending id order, or the
// whole store when no ids are given. Duplicate ids are collapsed so repeated
// selections produce the same document set.
func (s *Service) selectDocuments(ctx context.Context, ids []int64) ([]store.Document, error) {
	if len(ids) == 0 {
		return s.store.List(ctx)
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		d, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", id, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func insightDocument(d store.Document) insight.Document {
	return insight.Document{ID: d.ID, Name: d.Name, Type: d.TypeLabel, Content: d.Content}
}
