package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDefaultFileYieldsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "minilm", cfg.Embedding.Model)
	assert.InDelta(t, 0.7, cfg.Search.HybridWeight, 1e-9)
	assert.Equal(t, 10, cfg.Search.Limit)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/custom.db
listen: 127.0.0.1:9999
embedding:
  base_url: http://encoder:8080
  model: mpnet
search:
  hybrid_weight: 0.5
  limit: 25
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9999", cfg.Listen)
	assert.Equal(t, "http://encoder:8080", cfg.Embedding.BaseURL)
	assert.Equal(t, "mpnet", cfg.Embedding.Model)
	assert.InDelta(t, 0.5, cfg.Search.HybridWeight, 1e-9)
	assert.Equal(t, 25, cfg.Search.Limit)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: localhost:4000\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:4000", cfg.Listen)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/sub/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sub", "config.yaml"), got)
}
