package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/docinsight/internal/extract"
	"github.com/hyperifyio/docinsight/internal/insight"
	"github.com/hyperifyio/docinsight/internal/provider"
	"github.com/hyperifyio/docinsight/internal/store"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "docinsight.db")
	}
	if cfg.Provider == "" {
		cfg.Provider = "demo"
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return path
}

func mustAddFile(t *testing.T, s *Service, name, content string) store.Document {
	t.Helper()
	doc, err := s.AddFile(context.Background(), writeUpload(t, name, content))
	if err != nil {
		t.Fatalf("AddFile %s: %v", name, err)
	}
	return doc
}

func TestAddFile_Txt(t *testing.T) {
	s := newTestService(t, Config{})
	raw := "Project kickoff next week.\r\nBring the roadmap."

	doc, err := s.AddFile(context.Background(), writeUpload(t, "notes.txt", raw))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if doc.ID == 0 {
		t.Fatalf("document id not assigned")
	}
	if doc.Name != "notes.txt" || doc.Source != store.SourceUpload {
		t.Fatalf("doc = %q/%q", doc.Name, doc.Source)
	}
	if doc.Extension != ".txt" || doc.TypeLabel != "Text Document" {
		t.Fatalf("metadata = %q/%q", doc.Extension, doc.TypeLabel)
	}
	if doc.Content != "Project kickoff next week.\nBring the roadmap." {
		t.Fatalf("content = %q", doc.Content)
	}
	if doc.Size != int64(len(raw)) {
		t.Fatalf("size = %d, want raw byte count %d", doc.Size, len(raw))
	}
	if doc.UploadedAt.IsZero() {
		t.Fatalf("upload time not set")
	}

	stored, err := s.List(context.Background())
	if err != nil || len(stored) != 1 {
		t.Fatalf("List = %d docs, err %v", len(stored), err)
	}
	if stored[0].Content != doc.Content {
		t.Fatalf("stored content differs: %q", stored[0].Content)
	}
}

func TestAddFile_Validation(t *testing.T) {
	s := newTestService(t, Config{MaxFileSize: 16})
	ctx := context.Background()

	if _, err := s.AddFile(ctx, writeUpload(t, "empty.txt", "")); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("empty file: got %v", err)
	}

	big := writeUpload(t, "big.txt", strings.Repeat("a", 17))
	if _, err := s.AddFile(ctx, big); err == nil || !strings.Contains(err.Error(), "file too large") {
		t.Fatalf("oversized file: got %v", err)
	}

	png := writeUpload(t, "diagram.png", "not really a png")
	if _, err := s.AddFile(ctx, png); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("unsupported extension: got %v", err)
	}

	if _, err := s.AddFile(ctx, t.TempDir()); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Fatalf("directory: got %v", err)
	}

	if _, err := s.AddFile(ctx, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestAddConfluence(t *testing.T) {
	var gotPath, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"Team Handbook","body":{"storage":{"value":"<p>Welcome to the team.</p><p>Read the onboarding guide first.</p>"}}}`)
	}))
	defer srv.Close()

	s := newTestService(t, Config{ConfluenceEmail: "bot@example.com", ConfluenceToken: "conf-token"})
	pageURL := srv.URL + "/wiki/spaces/ENG/pages/12345/Team+Handbook"

	doc, err := s.AddConfluence(context.Background(), pageURL, "", "")
	if err != nil {
		t.Fatalf("AddConfluence: %v", err)
	}
	if gotPath != "/wiki/rest/api/content/12345" {
		t.Fatalf("api path = %q", gotPath)
	}
	if gotUser != "bot@example.com" || gotPass != "conf-token" {
		t.Fatalf("default credentials not applied: %q/%q", gotUser, gotPass)
	}
	if doc.Name != "Team Handbook" || doc.Source != store.SourceConfluence {
		t.Fatalf("doc = %q/%q", doc.Name, doc.Source)
	}
	if doc.URL != pageURL {
		t.Fatalf("url = %q", doc.URL)
	}
	if doc.Content != "Welcome to the team.\n\nRead the onboarding guide first." {
		t.Fatalf("content = %q", doc.Content)
	}
	if doc.Size != int64(len(doc.Content)) {
		t.Fatalf("size = %d", doc.Size)
	}
	if doc.TypeLabel != "Text Document" {
		t.Fatalf("type label = %q", doc.TypeLabel)
	}
}

func TestAsk_DemoOverAllDocuments(t *testing.T) {
	s := newTestService(t, Config{})
	ctx := context.Background()
	mustAddFile(t, s, "roadmap.txt", "Ship v2 in October.")
	mustAddFile(t, s, "budget.txt", "Q4 budget is frozen.")

	res, err := s.Ask(ctx, "what should we plan for?", nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(res.Text, `"what should we plan for?"`) {
		t.Fatalf("demo response should echo the query: %q", res.Text)
	}
	if !strings.Contains(res.Text, "roadmap.txt (Text Document)") || !strings.Contains(res.Text, "budget.txt (Text Document)") {
		t.Fatalf("demo response should list both documents: %q", res.Text)
	}
	if res.Cached {
		t.Fatalf("first answer should not be cached")
	}

	again, err := s.Ask(ctx, "what should we plan for?", nil)
	if err != nil {
		t.Fatalf("Ask again: %v", err)
	}
	if !again.Cached || again.Text != res.Text {
		t.Fatalf("repeat answer should come from cache")
	}
}

func TestAsk_SelectsRequestedDocuments(t *testing.T) {
	s := newTestService(t, Config{})
	ctx := context.Background()
	first := mustAddFile(t, s, "first.txt", "alpha")
	second := mustAddFile(t, s, "second.txt", "beta")
	mustAddFile(t, s, "third.txt", "gamma")

	res, err := s.Ask(ctx, "compare", []int64{second.ID, first.ID, second.ID})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(res.Text, "first.txt") || !strings.Contains(res.Text, "second.txt") {
		t.Fatalf("selected documents missing: %q", res.Text)
	}
	if strings.Contains(res.Text, "third.txt") {
		t.Fatalf("unrequested document included: %q", res.Text)
	}
	if !strings.Contains(res.Text, "2 documents") {
		t.Fatalf("duplicate ids should collapse: %q", res.Text)
	}
}

func TestAsk_UnknownDocument(t *testing.T) {
	s := newTestService(t, Config{})

	_, err := s.Ask(context.Background(), "anything", []int64{99})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want store.ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "document 99") {
		t.Fatalf("error should name the id: %v", err)
	}
}

func TestAsk_EmptyStore(t *testing.T) {
	s := newTestService(t, Config{})

	_, err := s.Ask(context.Background(), "anything", nil)
	if !errors.Is(err, insight.ErrNoDocuments) {
		t.Fatalf("want insight.ErrNoDocuments, got %v", err)
	}
}

func TestSummarizeAndTopics_Demo(t *testing.T) {
	s := newTestService(t, Config{})
	ctx := context.Background()
	doc := mustAddFile(t, s, "notes.txt", "Hello world")

	summary, err := s.Summarize(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(summary, "Demo Summary for: notes.txt") {
		t.Fatalf("summary = %q", summary)
	}

	topics, err := s.Topics(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(topics) != 5 {
		t.Fatalf("topics = %v", topics)
	}

	if _, err := s.Summarize(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("summarize unknown id: got %v", err)
	}
	if _, err := s.Topics(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("topics unknown id: got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestService(t, Config{})
	ctx := context.Background()
	doc := mustAddFile(t, s, "notes.txt", "Hello world")

	if err := s.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	docs, err := s.List(ctx)
	if err != nil || len(docs) != 0 {
		t.Fatalf("List after delete = %d docs, err %v", len(docs), err)
	}
}

func TestSearch(t *testing.T) {
	s := newTestService(t, Config{})
	ctx := context.Background()
	mustAddFile(t, s, "deploy.txt", "Kubernetes rollout steps")
	mustAddFile(t, s, "recipe.txt", "Carrot cake ingredients")

	docs, err := s.Search(ctx, "kubernetes")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "deploy.txt" {
		t.Fatalf("Search matched %d docs", len(docs))
	}
}

func TestStats(t *testing.T) {
	s := newTestService(t, Config{})
	ctx := context.Background()
	mustAddFile(t, s, "a.txt", "aaaa")
	mustAddFile(t, s, "b.txt", "bb")

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 2 || st.Uploaded != 2 || st.Confluence != 0 || st.TotalSize != 6 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestNew_MisconfiguredProvider(t *testing.T) {
	cfg := Config{DBPath: filepath.Join(t.TempDir(), "x.db"), Provider: "openai"}

	_, err := New(cfg)
	var mis *provider.MisconfiguredError
	if !errors.As(err, &mis) {
		t.Fatalf("openai without api key should fail with MisconfiguredError, got %v", err)
	}
}

func TestProviderName(t *testing.T) {
	s := newTestService(t, Config{})
	if got := s.Provider(); got != "demo" {
		t.Fatalf("Provider()=%q, want demo", got)
	}
}
