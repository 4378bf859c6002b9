package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "5328", cfg.Server.Port)
	assert.Equal(t, "express", cfg.LLM.Provider)
	assert.Equal(t, 25, cfg.LLM.TimeoutSecs)
	assert.Equal(t, "sanity", cfg.Retrieval.Index)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "sanity", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Enrichment.MaxConcepts)
	assert.Equal(t, "https://ydc-index.io/v1/search", cfg.YouCom.SearchURL)
	assert.Equal(t, 10, cfg.Elasticsearch.TimeoutSecs)
}

func TestLoad_EnvironmentNames(t *testing.T) {
	t.Setenv("YOU_COM_API_KEY", "yc-key")
	t.Setenv("SANITY_PROJECT_ID", "proj")
	t.Setenv("SANITY_WRITE_TOKEN", "tok")
	t.Setenv("NT_STORE_DRIVER", "redis")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "yc-key", cfg.YouCom.APIKey)
	assert.Equal(t, "proj", cfg.Sanity.ProjectID)
	assert.Equal(t, "tok", cfg.Sanity.Token)
	assert.Equal(t, "redis", cfg.Store.Driver)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  mode: debug
retrieval:
  index: elasticsearch
  top_k: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "elasticsearch", cfg.Retrieval.Index)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "production", cfg.Sanity.Dataset)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
