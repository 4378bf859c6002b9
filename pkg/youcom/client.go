// Package youcom provides clients for the You.com search and Express agent APIs.
package youcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"neural-trace-go/pkg/log"
)

const (
	defaultSearchURL  = "https://ydc-index.io/v1/search"
	defaultExpressURL = "https://api.you.com/v1/agents/runs"

	defaultSearchTimeout  = 10 * time.Second
	defaultExpressTimeout = 25 * time.Second

	maxSnippets = 2
	// answerItemType 标记 Express 输出中的最终答案消息。
	answerItemType = "message.answer"
)

// ErrNotConfigured is returned by Ask when no API key is configured.
var ErrNotConfigured = errors.New("youcom: api key not configured")

// SearchResult is one normalized web result.
type SearchResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Snippets    []string `json:"snippets"`
}

// Client performs keyword searches and Express completions.
type Client interface {
	// Search never returns an error: missing credentials and remote failures yield an empty slice.
	Search(ctx context.Context, query string, count int) []SearchResult
	// Ask returns the trimmed answer text of the Express agent.
	Ask(ctx context.Context, prompt string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithSearchURL overrides the search endpoint.
func WithSearchURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchURL = u
		}
	}
}

// WithExpressURL overrides the Express endpoint.
func WithExpressURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.expressURL = u
		}
	}
}

// WithSearchTimeout overrides the search timeout.
func WithSearchTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.search.Timeout = d
		}
	}
}

// WithExpressTimeout overrides the Express timeout.
func WithExpressTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.express.Timeout = d
		}
	}
}

type httpClient struct {
	apiKey     string
	searchURL  string
	expressURL string
	search     *http.Client
	express    *http.Client
}

// NewClient creates a You.com client. An empty apiKey yields a client whose calls are no-ops.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		searchURL:  defaultSearchURL,
		expressURL: defaultExpressURL,
		search:     &http.Client{Timeout: defaultSearchTimeout},
		express:    &http.Client{Timeout: defaultExpressTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type webResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Snippets    []string `json:"snippets"`
}

func (c *httpClient) Search(ctx context.Context, query string, count int) []SearchResult {
	if c.apiKey == "" {
		return []SearchResult{}
	}
	if count <= 0 {
		count = 3
	}
	results, err := c.doSearch(ctx, query, count)
	if err != nil {
		log.Warnf("[YouCom] 搜索失败, query: %q, error: %v", query, err)
		return []SearchResult{}
	}
	return results
}

func (c *httpClient) doSearch(ctx context.Context, query string, count int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "youcom: create search request")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.search.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "youcom: send search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "youcom: read search response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("youcom: unexpected search status %d", resp.StatusCode)
	}

	web, err := parseWeb(body)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, count)
	for _, r := range web {
		if len(out) >= count {
			break
		}
		snippets := r.Snippets
		if len(snippets) > maxSnippets {
			snippets = snippets[:maxSnippets]
		}
		if snippets == nil {
			snippets = []string{}
		}
		out = append(out, SearchResult{Title: r.Title, Description: r.Description, Snippets: snippets})
	}
	return out, nil
}

// parseWeb 从 {"results":{"web":[...]}} 或 {"web":[...]} 中取出结果列表；web 缺失或不是列表时视为空。
func parseWeb(body []byte) ([]webResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, eris.Wrap(err, "youcom: unmarshal search response")
	}
	container := top
	if raw, ok := top["results"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, nil
		}
		// results 为 null 或 {} 时退回顶层
		if len(nested) > 0 {
			container = nested
		}
	}
	raw, ok := container["web"]
	if !ok {
		return nil, nil
	}
	var web []webResult
	if err := json.Unmarshal(raw, &web); err != nil {
		return nil, nil
	}
	return web, nil
}

type expressRequest struct {
	Agent  string `json:"agent"`
	Input  string `json:"input"`
	Stream bool   `json:"stream"`
}

type expressResponse struct {
	Output []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"output"`
}

func (c *httpClient) Ask(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(expressRequest{Agent: "express", Input: prompt, Stream: false})
	if err != nil {
		return "", eris.Wrap(err, "youcom: marshal express request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.expressURL, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "youcom: create express request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.express.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "youcom: send express request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "youcom: read express response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("youcom: unexpected express status %d", resp.StatusCode)
	}

	var result expressResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "youcom: unmarshal express response")
	}
	for _, item := range result.Output {
		if item.Type == answerItemType && strings.TrimSpace(item.Text) != "" {
			return strings.TrimSpace(item.Text), nil
		}
	}
	return "", eris.New("youcom: express response has no answer message")
}
