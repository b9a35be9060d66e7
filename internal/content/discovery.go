package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tverberg/blogsmith/internal/logfields"
)

// File is a discovered content file, not yet parsed.
type File struct {
	Path    string // absolute path
	RelPath string // slash-separated path relative to the content dir
}

// Discovery enumerates content files under a root directory using
// include/exclude glob patterns.
type Discovery struct {
	root    string
	include []string
	exclude []string
}

// NewDiscovery creates a discovery instance. Include patterns default to
// every markdown file when empty.
func NewDiscovery(root string, include, exclude []string) *Discovery {
	if len(include) == 0 {
		include = []string{"**/*.md"}
	}
	return &Discovery{root: root, include: include, exclude: exclude}
}

// Discover walks the content root and returns matching files sorted by
// relative path for deterministic downstream processing.
func (d *Discovery) Discover() ([]File, error) {
	root, err := filepath.Abs(d.root)
	if err != nil {
		return nil, fmt.Errorf("resolve content dir: %w", err)
	}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("content dir not found or not a directory: %s", root)
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip hidden files and directories.
		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if !d.matches(rel) {
			return nil
		}

		files = append(files, File{Path: path, RelPath: rel})
		slog.Debug("Discovered content file", logfields.File(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content dir: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	slog.Info("Content files discovered", slog.Int("count", len(files)), logfields.Path(root))
	return files, nil
}

func (d *Discovery) matches(rel string) bool {
	included := false
	for _, pattern := range d.include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range d.exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return false
		}
	}
	return true
}
