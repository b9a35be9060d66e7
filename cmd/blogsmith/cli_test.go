package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tverberg/blogsmith/internal/config"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	contentDir := filepath.Join(root, "content")
	require.NoError(t, os.MkdirAll(contentDir, 0o755))

	cfgPath := filepath.Join(root, "blogsmith.yaml")
	cfg := "site:\n  title: Test\n  base_url: https://example.com\ncontent:\n  dir: " +
		contentDir + "\noutput:\n  directory: " + filepath.Join(root, "public") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func TestRunNewCreatesDraft(t *testing.T) {
	cfgPath := writeTestConfig(t)
	prev := CLI.Config
	CLI.Config = cfgPath
	t.Cleanup(func() { CLI.Config = prev })

	require.NoError(t, runNew("Hello, Wörld!"))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	entries, err := os.ReadDir(cfg.Content.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(cfg.Content.Dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `title: "Hello, Wörld!"`)
	assert.Contains(t, string(data), "draft: true")

	// A second scaffold with the same title must not overwrite.
	assert.Error(t, runNew("Hello, Wörld!"))
}

func TestDiscoverFiles(t *testing.T) {
	cfgPath := writeTestConfig(t)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.Dir, "a.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.Dir, "b.txt"), []byte("x"), 0o644))

	files, err := discoverFiles(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, files)
}
