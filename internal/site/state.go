package site

import (
	"path"
	"strings"
	"time"

	"github.com/tverberg/blogsmith/internal/content"
	"github.com/tverberg/blogsmith/internal/images"
)

// BuildState is the shared mutable state threaded through the pipeline
// stages. Each stage reads what earlier stages produced and adds its own
// results.
type BuildState struct {
	ContentRoot string // absolute content dir
	OutputDir   string // absolute final output dir
	StagingDir  string // absolute staging dir, promoted on success

	Files []content.File
	Posts []content.Post // published posts, newest first
	Pages []Page

	// Images maps a canonical source path (slash-separated, relative to the
	// content root) to its processed variants.
	Images map[string]images.Result

	Report *BuildReport
	Now    time.Time
}

// resolveImageRef maps an image destination as written in a post body to the
// canonical content-relative path of its source file. External URLs and
// references escaping the content root report ok=false.
func resolveImageRef(postRel, dest string) (canonical string, ok bool) {
	if dest == "" || strings.Contains(dest, "://") ||
		strings.HasPrefix(dest, "data:") || strings.HasPrefix(dest, "#") {
		return "", false
	}
	var rel string
	if strings.HasPrefix(dest, "/") {
		rel = strings.TrimPrefix(dest, "/")
	} else {
		rel = path.Join(path.Dir(postRel), dest)
	}
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
