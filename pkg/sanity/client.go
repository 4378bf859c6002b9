// Package sanity provides a small client for the Sanity content lake HTTP API:
// GROQ queries, mutations and the embeddings index.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultAPIVersion = "v2021-06-07"
	// 嵌入索引接口只在实验版本上提供。
	embeddingsAPIVersion = "vX"
	defaultTimeout       = 10 * time.Second
)

// ErrNotConfigured is returned when project id or dataset is missing.
var ErrNotConfigured = errors.New("sanity: project or dataset not configured")

// RemoteError reports a non-2xx response from Sanity.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sanity: remote returned status %d: %s", e.StatusCode, e.Body)
}

// Mutation is one entry of a mutate request, e.g. {"createIfNotExists": {...}}.
type Mutation map[string]any

// CreateIfNotExists creates doc unless a document with the same _id exists.
func CreateIfNotExists(doc map[string]any) Mutation {
	return Mutation{"createIfNotExists": doc}
}

// CreateOrReplace creates doc or replaces the document with the same _id.
func CreateOrReplace(doc map[string]any) Mutation {
	return Mutation{"createOrReplace": doc}
}

// PatchSet sets the given fields on document id.
func PatchSet(id string, set map[string]any) Mutation {
	return Mutation{"patch": map[string]any{"id": id, "set": set}}
}

// MutateResult is the decoded response of a mutate request.
type MutateResult struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// EmbeddingHit is one hit from an embeddings index query.
type EmbeddingHit struct {
	Score float64 `json:"score"`
	Value struct {
		DocumentID string `json:"documentId"`
		Type       string `json:"type"`
	} `json:"value"`
}

// Client talks to one Sanity project and dataset.
type Client interface {
	// Configured reports whether project and dataset are set.
	Configured() bool
	// Query runs a GROQ query and decodes its "result" into out.
	Query(ctx context.Context, groq string, params map[string]any, out any) error
	// Mutate applies mutations in a single transaction.
	Mutate(ctx context.Context, mutations ...Mutation) (MutateResult, error)
	// QueryEmbeddings runs a semantic query against an embeddings index.
	QueryEmbeddings(ctx context.Context, index, query string, k int) ([]EmbeddingHit, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithToken sets the bearer token used for all requests.
func WithToken(token string) Option {
	return func(c *httpClient) { c.token = token }
}

// WithAPIVersion overrides the dated API version.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

// WithBaseURL replaces https://<project>.api.sanity.io, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	projectID  string
	dataset    string
	token      string
	apiVersion string
	baseURL    string
	http       *http.Client
}

// NewClient creates a client for project/dataset.
func NewClient(projectID, dataset string, opts ...Option) Client {
	c := &httpClient{
		projectID:  projectID,
		dataset:    dataset,
		apiVersion: defaultAPIVersion,
		http:       &http.Client{Timeout: defaultTimeout},
	}
	if projectID != "" {
		c.baseURL = fmt.Sprintf("https://%s.api.sanity.io", projectID)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Configured() bool {
	return c.projectID != "" && c.dataset != "" && c.baseURL != ""
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

func (c *httpClient) Query(ctx context.Context, groq string, params map[string]any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	q := url.Values{}
	q.Set("query", groq)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return eris.Wrapf(err, "sanity: encode query param %s", name)
		}
		q.Set("$"+name, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/%s/data/query/%s?%s", c.baseURL, c.apiVersion, url.PathEscape(c.dataset), q.Encode())

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return eris.Wrap(err, "sanity: unmarshal query response")
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return eris.Wrap(err, "sanity: decode query result")
	}
	return nil
}

func (c *httpClient) Mutate(ctx context.Context, mutations ...Mutation) (MutateResult, error) {
	if !c.Configured() {
		return MutateResult{}, ErrNotConfigured
	}
	payload, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return MutateResult{}, eris.Wrap(err, "sanity: marshal mutations")
	}
	endpoint := fmt.Sprintf("%s/%s/data/mutate/%s?returnIds=true", c.baseURL, c.apiVersion, url.PathEscape(c.dataset))

	body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return MutateResult{}, err
	}
	var result MutateResult
	if err := json.Unmarshal(body, &result); err != nil {
		return MutateResult{}, eris.Wrap(err, "sanity: unmarshal mutate response")
	}
	return result, nil
}

func (c *httpClient) QueryEmbeddings(ctx context.Context, index, query string, k int) ([]EmbeddingHit, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	payload, err := json.Marshal(map[string]any{"query": query, "k": k})
	if err != nil {
		return nil, eris.Wrap(err, "sanity: marshal embeddings query")
	}
	endpoint := fmt.Sprintf("%s/%s/embeddings-index/query/%s/%s",
		c.baseURL, embeddingsAPIVersion, url.PathEscape(c.dataset), url.PathEscape(index))

	body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	var hits []EmbeddingHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, eris.Wrap(err, "sanity: unmarshal embeddings response")
	}
	return hits, nil
}

func (c *httpClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, eris.Wrap(err, "sanity: create request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sanity: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sanity: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
