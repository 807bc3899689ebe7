package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"jwt_secret": "secret",
	"database": {"host": "localhost", "user": "rm", "dbname": "rm"},
	"ai": {
		"providers": [{"provider": "gemini", "data": {"api_key": "k"}}],
		"embed_model": "text-embedding-004",
		"gen_model": "gemini-2.0-flash"
	}
}`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, 320, cfg.Chunking.ChunkSize)
	require.Equal(t, 48, cfg.Chunking.ChunkOverlap)
	require.Equal(t, 5, cfg.Retrieval.DefaultK)
	require.Equal(t, 16, cfg.Retrieval.MaxK)
	require.InDelta(t, 0.55, cfg.Retrieval.MinRelevance, 1e-6)
	require.Equal(t, 4, cfg.Generation.MaxConcurrent)
	require.Equal(t, 32, cfg.Generation.MaxQueue)
	require.Equal(t, 30000, cfg.Timeouts.GenerationMs)
	require.Equal(t, "dir", cfg.Content.Type)
	require.Equal(t, "info", cfg.Log.Level)
	require.NotEmpty(t, cfg.Schedules.ContentSync)
}

func TestLoad_RequiresCoreFields(t *testing.T) {
	_, err := Load(writeConfig(t, `{"port": 8080}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{}`))
	require.Error(t, err)
}

func TestLoad_RejectsOverlapNotBelowChunkSize(t *testing.T) {
	body := `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"host": "localhost"},
		"ai": {
			"providers": [{"provider": "gemini"}],
			"embed_model": "e",
			"gen_model": "g"
		},
		"chunking": {"chunk_size": 10, "chunk_overlap": 10}
	}`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}

func TestLoad_RejectsDefaultKAboveMaxK(t *testing.T) {
	body := `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"host": "localhost"},
		"ai": {
			"providers": [{"provider": "gemini"}],
			"embed_model": "e",
			"gen_model": "g"
		},
		"retrieval": {"default_k": 20, "max_k": 8}
	}`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
