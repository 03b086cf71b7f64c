package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Page is the readable content of a single wiki page.
type Page struct {
	Title string
	Body  string
}

// ErrUnresolvableReference means no page ID could be derived from the URL.
var ErrUnresolvableReference = errors.New("no page id in url")

// ErrEmptyContent means the page resolved but carries no usable text.
var ErrEmptyContent = errors.New("page has no textual content")

// RemoteError is a non-2xx reply from the content API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("confluence: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client fetches wiki pages over the Confluence content REST API.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each page fetch. Zero means rely on the caller's context.
	Timeout time.Duration
	// DefaultEmail and DefaultToken are the fallback credential pair used
	// when FetchPage is called without an explicit one.
	DefaultEmail string
	DefaultToken string
}

// URL shapes Confluence hands out, most specific first: the modern
// /pages/{id}/ path, the legacy viewpage.action form, then any query string
// carrying a pageId parameter.
var pageIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/pages/(\d+)`),
	regexp.MustCompile(`viewpage\.action\?pageId=(\d+)`),
	regexp.MustCompile(`pageId=(\d+)`),
}

// ResolvePageID extracts the numeric page ID from a wiki page URL.
func ResolvePageID(pageURL string) (string, error) {
	for _, re := range pageIDPatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnresolvableReference, pageURL)
}

// FetchPage resolves the page reference, calls the content API on the URL's
// own host, and returns the cleaned page text. Explicit credentials win over
// the client defaults; with neither the call goes out unauthenticated.
func (c *Client) FetchPage(ctx context.Context, pageURL, email, token string) (Page, error) {
	id, err := ResolvePageID(pageURL)
	if err != nil {
		return Page{}, err
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Page{}, fmt.Errorf("confluence: cannot derive base endpoint from %q", pageURL)
	}
	endpoint := fmt.Sprintf("%s://%s/wiki/rest/api/content/%s?expand=body.storage,title", u.Scheme, u.Host, id)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, fmt.Errorf("confluence: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if email == "" && token == "" {
		email, token = c.DefaultEmail, c.DefaultToken
	}
	if email != "" && token != "" {
		req.SetBasicAuth(email, token)
	}

	log.Debug().Str("page_id", id).Str("host", u.Host).Msg("fetching confluence page")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("confluence: fetch page %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Page{}, &RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var payload struct {
		Title string `json:"title"`
		Body  struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Page{}, fmt.Errorf("confluence: decode content response: %w", err)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = "Untitled"
	}
	body := StripMarkup(payload.Body.Storage.Value)
	if body == "" {
		return Page{}, fmt.Errorf("page %s: %w", id, ErrEmptyContent)
	}
	return Page{Title: title, Body: body}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
