package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docinsight/internal/cache"
	"github.com/hyperifyio/docinsight/internal/provider"
)

// Document is the material insights are generated from. Content is extracted
// plain text, not the original file bytes.
type Document struct {
	ID      int64
	Name    string
	Type    string
	Content string
}

// Request asks one question over an ordered set of documents.
type Request struct {
	Query     string
	Documents []Document
}

// Result carries the generated text and whether it was served from cache.
type Result struct {
	Text   string
	Cached bool
}

// ErrEmptyQuery indicates a request without a question to answer.
var ErrEmptyQuery = errors.New("empty query")

// ErrNoDocuments indicates a request without any document to analyze.
var ErrNoDocuments = errors.New("no documents to analyze")

var errNotConfigured = errors.New("insight generator not configured")

// Per-document cap on the text fed to the provider.
const maxDocumentLength = 10000

// Generator turns documents plus a user query into insight text through the
// configured provider. The memo caches are optional; a nil cache means every
// call reaches the provider.
type Generator struct {
	Provider     provider.Generator
	InsightCache *cache.Memo
	SummaryCache *cache.Memo
	TopicCache   *cache.Memo
}

// Generate answers the query from the request's documents. Identical requests
// inside the insight cache's TTL are served from cache, and concurrent
// identical requests share a single provider call.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if g.Provider == nil {
		return Result{}, errNotConfigured
	}
	if strings.TrimSpace(req.Query) == "" {
		return Result{}, ErrEmptyQuery
	}
	if len(req.Documents) == 0 {
		return Result{}, ErrNoDocuments
	}
	text, cached, err := g.memoized(ctx, g.InsightCache, requestKey(req), func(ctx context.Context) (string, error) {
		return g.callProvider(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}
	log.Debug().
		Str("provider", g.Provider.Name()).
		Int("documents", len(req.Documents)).
		Bool("cached", cached).
		Msg("insight generated")
	return Result{Text: text, Cached: cached}, nil
}

const summaryQuery = "Please provide a concise summary of this document"

// Summarize produces a standalone summary of one document. The demo provider
// answers with a fixed template; everything else goes through the normal
// insight path with a canned instruction.
func (g *Generator) Summarize(ctx context.Context, doc Document) (string, error) {
	if g.Provider == nil {
		return "", errNotConfigured
	}
	text, _, err := g.memoized(ctx, g.SummaryCache, cache.KeyFrom("summary", documentKey(doc)), func(ctx context.Context) (string, error) {
		if g.Provider.Name() == "demo" {
			return fmt.Sprintf("**Demo Summary for: %s**\n\nThis document contains %d characters of content. "+
				"In a real implementation, this would be an AI-generated summary highlighting the key points, "+
				"main themes, and important findings from the document.",
				doc.Name, utf8.RuneCountInString(doc.Content)), nil
		}
		return g.callProvider(ctx, Request{Query: summaryQuery, Documents: []Document{doc}})
	})
	return text, err
}

const topicsQuery = "List the key topics covered by this document, one topic per line, without commentary"

// Topics extracts the key topic list of one document. The demo provider
// returns five fixed topics; remote providers answer free-form text that is
// parsed line by line.
func (g *Generator) Topics(ctx context.Context, doc Document) ([]string, error) {
	if g.Provider == nil {
		return nil, errNotConfigured
	}
	text, _, err := g.memoized(ctx, g.TopicCache, cache.KeyFrom("topics", documentKey(doc)), func(ctx context.Context) (string, error) {
		if g.Provider.Name() == "demo" {
			return "Demo Topic 1\nDemo Topic 2\nDemo Topic 3\nDemo Topic 4\nDemo Topic 5", nil
		}
		return g.callProvider(ctx, Request{Query: topicsQuery, Documents: []Document{doc}})
	})
	if err != nil {
		return nil, err
	}
	return parseTopics(text), nil
}

func (g *Generator) memoized(ctx context.Context, memo *cache.Memo, key string, fn func(context.Context) (string, error)) (string, bool, error) {
	if memo == nil {
		text, err := fn(ctx)
		return text, false, err
	}
	return memo.GetOrCompute(ctx, key, fn)
}

func (g *Generator) callProvider(ctx context.Context, req Request) (string, error) {
	refs := make([]provider.DocumentRef, 0, len(req.Documents))
	for _, d := range req.Documents {
		refs = append(refs, provider.DocumentRef{Name: d.Name, Type: d.Type})
	}
	out, err := g.Provider.Generate(ctx, provider.Request{
		Query:     req.Query,
		Documents: refs,
		System:    systemPrompt,
		Prompt:    buildPrompt(req.Query, req.Documents),
	})
	if err != nil {
		return "", fmt.Errorf("generate insights: %w", err)
	}
	return out, nil
}

// requestKey is order sensitive: the same documents in a different order
// produce different context blocks, so they memoize separately.
func requestKey(req Request) string {
	parts := make([]string, 0, len(req.Documents)+1)
	parts = append(parts, req.Query)
	for _, d := range req.Documents {
		parts = append(parts, documentKey(d))
	}
	return cache.KeyFrom(parts...)
}

// documentKey identifies a document by id, display fields and content hash,
// so edits invalidate cached artifacts.
func documentKey(d Document) string {
	sum := sha256.Sum256([]byte(d.Content))
	return strconv.FormatInt(d.ID, 10) + "\n" + d.Name + "\n" + d.Type + "\n" + hex.EncodeToString(sum[:])
}

func buildPrompt(query string, docs []Document) string {
	list := make([]string, 0, len(docs))
	for _, d := range docs {
		list = append(list, fmt.Sprintf("- %q (%s)", d.Name, d.Type))
	}
	return fmt.Sprintf(`USER QUERY: %s

AVAILABLE DOCUMENTS:
%s

DOCUMENT CONTENT:
%s

Please analyze the above documents and provide comprehensive insights to answer the user's query.
Structure your response clearly and cite specific documents when relevant.
`, query, strings.Join(list, "\n"), buildContext(docs))
}

func buildContext(docs []Document) string {
	var sb strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&sb, "=== DOCUMENT %d: %s ===\n", i+1, d.Name)
		sb.WriteString(truncate(d.Content, maxDocumentLength))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// truncate cuts s at limit bytes without splitting a rune and marks the cut.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... [truncated]"
}

var topicPrefix = regexp.MustCompile(`^\s*(?:[-•*]+|\d+[.)])\s*`)

// parseTopics splits provider output into clean topic strings. Models answer
// with bullet lists, numbered lists or a single comma-separated line.
func parseTopics(text string) []string {
	topics := make([]string, 0, 8)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(topicPrefix.ReplaceAllString(line, ""))
		if line != "" {
			topics = append(topics, line)
		}
	}
	if len(topics) == 1 && strings.Contains(topics[0], ",") {
		parts := strings.Split(topics[0], ",")
		topics = topics[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				topics = append(topics, p)
			}
		}
	}
	return topics
}

const systemPrompt = `You are an expert document analyst and insights generator. Your role is to analyze documents
and provide comprehensive, accurate, and helpful insights based on user queries.

Key responsibilities:
1. Analyze the provided documents thoroughly
2. Answer questions based ONLY on the content available in the documents
3. Provide detailed, well-structured responses
4. If information is not available in the documents, clearly state this
5. Cite specific documents when relevant
6. Summarize key findings and provide actionable insights
7. Maintain a professional and helpful tone

Guidelines:
- Be thorough but concise
- Use bullet points and structure for clarity
- Quote relevant sections when helpful
- Highlight important findings
- Suggest follow-up questions or areas for further investigation
- If multiple documents contain relevant information, synthesize insights across them`
