package youcom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []SearchResult
	}{
		{
			name:   "nested_results",
			status: http.StatusOK,
			body: `{"results":{"web":[
				{"title":"Osmosis","description":"Movement of water","snippets":["a","b","c"]},
				{"title":"Diffusion","description":"Spread of particles"}
			]}}`,
			want: []SearchResult{
				{Title: "Osmosis", Description: "Movement of water", Snippets: []string{"a", "b"}},
				{Title: "Diffusion", Description: "Spread of particles", Snippets: []string{}},
			},
		},
		{
			name:   "top_level_web",
			status: http.StatusOK,
			body:   `{"web":[{"title":"Cells","description":"Units of life","snippets":["s1"]}]}`,
			want:   []SearchResult{{Title: "Cells", Description: "Units of life", Snippets: []string{"s1"}}},
		},
		{
			name:   "null_results_falls_back_to_top_level",
			status: http.StatusOK,
			body:   `{"results":null,"web":[{"title":"a"}]}`,
			want:   []SearchResult{{Title: "a", Snippets: []string{}}},
		},
		{
			name:   "empty_results_falls_back_to_top_level",
			status: http.StatusOK,
			body:   `{"results":{},"web":[{"title":"b","snippets":["x"]}]}`,
			want:   []SearchResult{{Title: "b", Snippets: []string{"x"}}},
		},
		{
			name:   "web_missing",
			status: http.StatusOK,
			body:   `{"results":{"news":[]}}`,
			want:   []SearchResult{},
		},
		{
			name:   "web_not_a_list",
			status: http.StatusOK,
			body:   `{"results":{"web":"oops"}}`,
			want:   []SearchResult{},
		},
		{
			name:   "server_error",
			status: http.StatusInternalServerError,
			body:   `{"error":"boom"}`,
			want:   []SearchResult{},
		},
		{
			name:   "malformed",
			status: http.StatusOK,
			body:   `{not json`,
			want:   []SearchResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
				assert.Equal(t, "osmosis", r.URL.Query().Get("query"))
				assert.Equal(t, "3", r.URL.Query().Get("count"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithSearchURL(srv.URL))
			got := client.Search(context.Background(), "osmosis", 3)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_LimitsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"web":[{"title":"1"},{"title":"2"},{"title":"3"}]}`))
	}))
	defer srv.Close()

	got := NewClient("k", WithSearchURL(srv.URL)).Search(context.Background(), "q", 2)
	assert.Len(t, got, 2)
}

func TestSearch_NoAPIKeySkipsCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	got := NewClient("", WithSearchURL(srv.URL)).Search(context.Background(), "q", 3)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSearch_TimeoutAbsorbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient("k", WithSearchURL(srv.URL), WithSearchTimeout(20*time.Millisecond))
	assert.Empty(t, client.Search(context.Background(), "q", 3))
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{
			name:   "answer",
			status: http.StatusOK,
			body:   `{"output":[{"type":"web_search.results","text":"ignored"},{"type":"message.answer","text":"  Why do plants need light?  "}]}`,
			want:   "Why do plants need light?",
		},
		{
			name:    "no_answer_item",
			status:  http.StatusOK,
			body:    `{"output":[{"type":"web_search.results","text":"x"}]}`,
			wantErr: "no answer message",
		},
		{
			name:    "empty_answer_text",
			status:  http.StatusOK,
			body:    `{"output":[{"type":"message.answer","text":"   "}]}`,
			wantErr: "no answer message",
		},
		{
			name:    "non_200",
			status:  http.StatusCreated,
			body:    `{}`,
			wantErr: "unexpected express status 201",
		},
		{
			name:    "malformed",
			status:  http.StatusOK,
			body:    `[`,
			wantErr: "unmarshal express response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				var req expressRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "express", req.Agent)
				assert.Equal(t, "the prompt", req.Input)
				assert.False(t, req.Stream)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewClient("test-key", WithExpressURL(srv.URL)).Ask(context.Background(), "the prompt")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsk_NotConfigured(t *testing.T) {
	_, err := NewClient("").Ask(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
