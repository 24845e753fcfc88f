// Package wiki looks up short page summaries through the Wikipedia
// REST API.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

var (
	// ErrAmbiguous means the topic resolved to a disambiguation page.
	ErrAmbiguous = errors.New("wiki: ambiguous topic")

	// ErrNotFound means no page exists for the topic.
	ErrNotFound = errors.New("wiki: page not found")
)

const defaultBaseURL = "https://en.wikipedia.org"

// Client queries the page-summary endpoint.
type Client struct {
	http *http.Client
	base string
}

// NewClient builds a Client. A nil httpClient falls back to a default
// with a 15 second timeout; baseURL is for tests.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: httpClient, base: strings.TrimRight(baseURL, "/")}
}

// canonicalTitle maps a spoken topic to MediaWiki's title form:
// spaces become underscores and the first letter is uppercased.
func canonicalTitle(topic string) string {
	title := strings.ReplaceAll(strings.TrimSpace(topic), " ", "_")
	if title == "" {
		return title
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

// Summary returns the extract for topic, or ErrAmbiguous / ErrNotFound.
func (c *Client) Summary(ctx context.Context, topic string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", c.base, url.PathEscape(canonicalTitle(topic)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("wiki: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wiki: fetch summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, topic)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wiki: summary for %s: status %d", topic, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("wiki: read summary: %w", err)
	}

	if gjson.GetBytes(body, "type").String() == "disambiguation" {
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, topic)
	}

	extract := gjson.GetBytes(body, "extract").String()
	if extract == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, topic)
	}
	return extract, nil
}

// PageURL is the canonical article URL for topic.
func (c *Client) PageURL(topic string) string {
	return fmt.Sprintf("%s/wiki/%s", c.base, url.PathEscape(canonicalTitle(topic)))
}
