package es

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neural-trace-go/internal/config"
	"neural-trace-go/internal/model"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "textbook_pages"})
	require.NoError(t, err)
	return c
}

func TestKNN(t *testing.T) {
	c := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/textbook_pages/_search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		knn := body["knn"].(map[string]any)
		assert.Equal(t, "vector", knn["field"])
		assert.EqualValues(t, 2, knn["k"])
		assert.EqualValues(t, 2, body["size"])
		assert.Equal(t, []any{"document_id"}, body["_source"])
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_score":0.93,"_source":{"document_id":"tb-page-3"}},
			{"_score":0.71,"_source":{"document_id":"tb-page-9"}}
		]}}`))
	})

	hits, err := c.KNN(context.Background(), []float32{0.1, 0.2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{DocumentID: "tb-page-3", Score: 0.93}, {DocumentID: "tb-page-9", Score: 0.71}}, hits)
}

func TestKNN_Error(t *testing.T) {
	c := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})
	_, err := c.KNN(context.Background(), []float32{0.1}, 1)
	assert.Error(t, err)
}

func TestNewClient_Timeout(t *testing.T) {
	c, err := NewClient(config.ElasticsearchConfig{Addresses: "http://127.0.0.1:9200", TimeoutSecs: 3})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.timeout)

	c, err = NewClient(config.ElasticsearchConfig{Addresses: "http://127.0.0.1:9200"})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, c.timeout)
}

func TestKNN_TimesOut(t *testing.T) {
	c := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := c.KNN(context.Background(), []float32{0.1}, 1)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIndexPage(t *testing.T) {
	c := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/textbook_pages/_doc/tb-page-1"))
		var doc model.PageVector
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, 1, doc.PageNumber)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	require.NoError(t, c.IndexPage(context.Background(), model.PageVector{DocumentID: "tb-page-1", PageNumber: 1}))
}

func TestEnsureIndex_Creates(t *testing.T) {
	var created bool
	c := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})
	require.NoError(t, c.EnsureIndex(context.Background(), 8))
	assert.True(t, created)
}
