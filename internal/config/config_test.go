package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultChunkTargetChars, cfg.Chunking.TargetChars)
	assert.Equal(t, DefaultChunkOverlapChars, cfg.Chunking.OverlapChars)
	assert.Equal(t, DefaultRetrievalTopK, cfg.Retrieval.TopK)
	assert.InDelta(t, DefaultRetrievalThreshold, cfg.Retrieval.Threshold, 1e-9)
	assert.Equal(t, DefaultContextMaxChars, cfg.Context.MaxChars)
	assert.Equal(t, int64(DefaultStagingCapBytes), cfg.Storage.StagingCapBytes)
	assert.NotEmpty(t, cfg.Storage.Root)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `
chunking:
  target_chars: 500
  overlap_chars: 200
retrieval:
  top_k: 4
router:
  keywords:
    - fichier
    - dokument
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	require.NoError(t, Load(cfgPath))

	cfg := Get()
	assert.Equal(t, 500, cfg.Chunking.TargetChars)
	assert.Equal(t, 200, cfg.Chunking.OverlapChars)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, []string{"fichier", "dokument"}, cfg.Router.Keywords)

	// Unspecified keys keep defaults.
	assert.InDelta(t, DefaultRetrievalThreshold, cfg.Retrieval.Threshold, 1e-9)
	assert.Equal(t, DefaultContextMaxChars, cfg.Context.MaxChars)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	require.NoError(t, Load(""))
	cfg := Get()
	assert.Equal(t, DefaultRetrievalTopK, cfg.Retrieval.TopK)
}
