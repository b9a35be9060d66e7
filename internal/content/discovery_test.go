package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: T\ndate: 2021-01-01\n---\n"), 0o644))
}

func relPaths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestDiscoverSortedMarkdownOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "posts/b.md")
	writeFile(t, root, "posts/a.md")
	writeFile(t, root, "notes.md")
	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte("png"), 0o644))

	files, err := NewDiscovery(root, nil, nil).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.md", "posts/a.md", "posts/b.md"}, relPaths(files))
}

func TestDiscoverExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "posts/keep.md")
	writeFile(t, root, "drafts/wip.md")

	files, err := NewDiscovery(root, []string{"**/*.md"}, []string{"drafts/**"}).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"posts/keep.md"}, relPaths(files))
}

func TestDiscoverSkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "posts/ok.md")
	writeFile(t, root, ".obsidian/workspace.md")
	writeFile(t, root, "posts/.hidden.md")

	files, err := NewDiscovery(root, nil, nil).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"posts/ok.md"}, relPaths(files))
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := NewDiscovery(filepath.Join(t.TempDir(), "nope"), nil, nil).Discover()
	assert.Error(t, err)
}
