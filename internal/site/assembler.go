// Package site assembles the static site: it orchestrates content discovery,
// metadata extraction, image processing, and page compilation into a staged
// output tree, then atomically promotes it over the previous build. A failed
// build never touches the existing output.
package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/tverberg/blogsmith/internal/components"
	"github.com/tverberg/blogsmith/internal/config"
	"github.com/tverberg/blogsmith/internal/content"
	berrors "github.com/tverberg/blogsmith/internal/errors"
	"github.com/tverberg/blogsmith/internal/images"
	"github.com/tverberg/blogsmith/internal/logfields"
	"github.com/tverberg/blogsmith/internal/markdown"
)

// Assembler builds the site described by a configuration. One Assembler can
// run builds repeatedly; each Build call is independent.
type Assembler struct {
	cfg      *config.Config
	registry *components.Registry
	compiler *Compiler

	// now is replaceable in tests for deterministic publish-date cutoffs.
	now func() time.Time
}

// New creates a site assembler.
func New(cfg *config.Config, registry *components.Registry) *Assembler {
	return &Assembler{
		cfg:      cfg,
		registry: registry,
		compiler: NewCompiler(cfg.Site, registry),
		now:      time.Now,
	}
}

// Build runs the full pipeline. The returned report is always non-nil; err
// is non-nil when the build failed or was canceled, in which case the
// previous output directory is left untouched.
func (a *Assembler) Build(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	bs := &BuildState{
		Images: map[string]images.Result{},
		Report: report,
		Now:    a.now(),
	}

	slog.Info("Build starting", logfields.BuildID(report.BuildID))

	err := runStages(ctx, bs, []namedStage{
		{"prepare", a.stagePrepare},
		{"discover", a.stageDiscover},
		{"extract", a.stageExtract},
		{"images", a.stageImages},
		{"compile", a.stageCompile},
		{"index", a.stageIndex},
		{"feed", a.stageFeed},
		{"sitemap", a.stageSitemap},
		{"assets", a.stageAssets},
		{"verify", a.stageVerify},
		{"promote", a.stagePromote},
	})
	if err != nil {
		report.Errors = append(report.Errors, err)
		a.discardStaging(bs)
	}
	report.finish()

	slog.Info("Build finished", logfields.BuildID(report.BuildID), slog.String("summary", report.Summary()))
	return report, err
}

// discardStaging removes a leftover staging dir after a failed build.
func (a *Assembler) discardStaging(bs *BuildState) {
	if bs.StagingDir == "" {
		return
	}
	if err := os.RemoveAll(bs.StagingDir); err != nil {
		slog.Warn("Failed to remove staging dir", logfields.Path(bs.StagingDir), logfields.Error(err))
	}
}

// stagePrepare resolves directories and creates a fresh staging dir next to
// the output dir so the final promote is a same-filesystem rename.
func (a *Assembler) stagePrepare(_ context.Context, bs *BuildState) error {
	contentRoot, err := filepath.Abs(a.cfg.Content.Dir)
	if err != nil {
		return berrors.IOError(err, "resolve content dir")
	}
	outputDir, err := filepath.Abs(a.cfg.Output.Directory)
	if err != nil {
		return berrors.IOError(err, "resolve output dir")
	}
	bs.ContentRoot = contentRoot
	bs.OutputDir = outputDir
	bs.StagingDir = outputDir + ".staging-" + bs.Report.BuildID[:8]

	if err := os.RemoveAll(bs.StagingDir); err != nil {
		return berrors.IOError(err, "clear staging dir")
	}
	if err := os.MkdirAll(bs.StagingDir, 0o755); err != nil {
		return berrors.IOError(err, "create staging dir")
	}
	return nil
}

func (a *Assembler) stageDiscover(_ context.Context, bs *BuildState) error {
	files, err := content.NewDiscovery(bs.ContentRoot, a.cfg.Content.Include, a.cfg.Content.Exclude).Discover()
	if err != nil {
		return berrors.IOError(err, "discover content")
	}
	bs.Files = files
	return nil
}

// stageExtract parses every discovered file into a Post. The first malformed
// file aborts the build: a broken post must never silently vanish from the
// published index. Drafts and future-dated posts are excluded here.
func (a *Assembler) stageExtract(ctx context.Context, bs *BuildState) error {
	opts := content.ExtractOptions{
		ExcerptLength:  a.cfg.Content.ExcerptLength,
		WordsPerMinute: a.cfg.Content.WordsPerMinute,
	}

	bySlug := map[string]string{}
	posts := make([]content.Post, 0, len(bs.Files))
	for _, f := range bs.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := os.ReadFile(f.Path)
		if err != nil {
			return berrors.IOError(err, fmt.Sprintf("read %s", f.RelPath))
		}
		post, err := content.Extract(f.RelPath, raw, opts)
		if err != nil {
			return err
		}
		post.SourcePath = f.Path

		if post.Draft {
			slog.Debug("Skipping draft", logfields.File(f.RelPath))
			continue
		}
		if post.Date.After(bs.Now) {
			slog.Debug("Skipping future-dated post", logfields.File(f.RelPath),
				slog.Time("date", post.Date))
			continue
		}
		if prev, dup := bySlug[post.Slug]; dup {
			return berrors.ContentFormatError(f.RelPath,
				fmt.Sprintf("slug %q already used by %s", post.Slug, prev))
		}
		bySlug[post.Slug] = f.RelPath

		if a.cfg.Content.GitInfo {
			if mod, err := content.GitLastModified(bs.ContentRoot, f.Path); err == nil {
				post.LastModified = mod
			} else {
				slog.Debug("No git history for post", logfields.File(f.RelPath), logfields.Error(err))
			}
		}
		posts = append(posts, post)
		slog.Debug("Post extracted", logfields.Post(post.Title), logfields.Slug(post.Slug))
	}

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})

	bs.Posts = posts
	bs.Report.Posts = len(posts)
	return nil
}

// imageJob is one unique source image referenced by at least one post.
type imageJob struct {
	canonical string // content-relative source path
	source    string // absolute source path
}

// stageImages processes every image referenced by any post, bounded by the
// configured concurrency. Broken references and undecodable images become
// warnings; the referencing posts still build with their original src.
func (a *Assembler) stageImages(ctx context.Context, bs *BuildState) error {
	jobs := a.collectImageJobs(bs)
	if len(jobs) == 0 {
		return nil
	}

	// Carry the previous build's variants into staging so cache hits can
	// skip regeneration; anything no longer referenced is pruned below.
	a.seedStagingImages(bs)

	cache := a.openImageCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}
	pipeline := images.NewPipeline(a.cfg.Images.Widths, a.cfg.Images.Formats, a.cfg.Images.Quality, cache)

	var (
		mu       sync.Mutex
		warnings []error
		fatal    error
	)
	jobCh := make(chan imageJob)
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Build.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				res, err := pipeline.Process(job.source, job.canonical, bs.StagingDir)
				mu.Lock()
				if err != nil {
					if berrors.IsFatal(err) {
						if fatal == nil {
							fatal = err
						}
					} else {
						warnings = append(warnings, err)
					}
				} else {
					bs.Images[job.canonical] = res
					for _, v := range res.Variants {
						if v.FromCache {
							bs.Report.ImagesSkipped++
						} else {
							bs.Report.ImagesProcessed++
						}
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return ctx.Err()
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()

	if fatal != nil {
		return fatal
	}
	for _, w := range warnings {
		bs.Report.addWarning(w)
		slog.Warn("Image processing failed", logfields.Error(w))
	}
	return a.pruneStagingImages(bs)
}

// seedStagingImages copies the previous output's images dir into staging.
func (a *Assembler) seedStagingImages(bs *BuildState) {
	prev := filepath.Join(bs.OutputDir, "images")
	if st, err := os.Stat(prev); err != nil || !st.IsDir() {
		return
	}
	dst := filepath.Join(bs.StagingDir, "images")
	if err := os.CopyFS(dst, os.DirFS(prev)); err != nil {
		slog.Warn("Failed to reuse previous image variants", logfields.Error(err))
		_ = os.RemoveAll(dst)
	}
}

// pruneStagingImages removes staged image files no processed result claims,
// so variants of deleted or renamed sources do not accumulate.
func (a *Assembler) pruneStagingImages(bs *BuildState) error {
	keep := map[string]struct{}{}
	for _, res := range bs.Images {
		for _, v := range res.Variants {
			keep[v.Path] = struct{}{}
		}
	}

	imagesDir := filepath.Join(bs.StagingDir, "images")
	entries, err := os.ReadDir(imagesDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return berrors.IOError(err, "read staged images dir")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rel := "images/" + entry.Name()
		if _, referenced := keep[rel]; referenced {
			continue
		}
		if err := os.Remove(filepath.Join(imagesDir, entry.Name())); err != nil {
			slog.Warn("Failed to prune stale image variant", logfields.Path(rel), logfields.Error(err))
		}
	}
	return nil
}

// collectImageJobs resolves all local image references across posts into a
// de-duplicated job list. Missing sources are recorded as warnings here so a
// broken reference surfaces even though the post still builds.
func (a *Assembler) collectImageJobs(bs *BuildState) []imageJob {
	seen := map[string]struct{}{}
	var jobs []imageJob
	for _, post := range bs.Posts {
		for _, ref := range markdown.ExtractImageRefs(post.Body) {
			canonical, ok := resolveImageRef(post.RelPath, ref.Destination)
			if !ok {
				continue
			}
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}

			source := filepath.Join(bs.ContentRoot, filepath.FromSlash(canonical))
			if _, err := os.Stat(source); err != nil {
				warn := berrors.AssetProcessingError(canonical,
					fmt.Errorf("referenced from %s: %w", post.RelPath, err))
				bs.Report.addWarning(warn)
				slog.Warn("Image reference does not resolve",
					logfields.Image(ref.Destination), logfields.File(post.RelPath))
				continue
			}
			jobs = append(jobs, imageJob{canonical: canonical, source: source})
		}
	}
	return jobs
}

// openImageCache opens the staleness cache; a failure degrades to rebuilding
// every variant rather than failing the build.
func (a *Assembler) openImageCache() *images.Cache {
	cache, err := images.OpenCache(a.cfg.Images.Cache)
	if err != nil {
		slog.Warn("Image cache unavailable, regenerating all variants", logfields.Error(err))
		return nil
	}
	return cache
}

// stageCompile renders every post page in parallel and writes the results
// into the staging dir. The first component-resolution or render failure
// aborts the build.
func (a *Assembler) stageCompile(ctx context.Context, bs *BuildState) error {
	var (
		mu    sync.Mutex
		pages []Page
		fatal error
	)
	postCh := make(chan content.Post)
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Build.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for post := range postCh {
				page, err := a.compiler.Compile(post, bs.Images)
				mu.Lock()
				if err != nil {
					if fatal == nil {
						fatal = err
					}
				} else {
					pages = append(pages, page)
				}
				mu.Unlock()
			}
		}()
	}

	for _, post := range bs.Posts {
		select {
		case <-ctx.Done():
			close(postCh)
			wg.Wait()
			return ctx.Err()
		case postCh <- post:
		}
	}
	close(postCh)
	wg.Wait()

	if fatal != nil {
		return fatal
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].RelPath < pages[j].RelPath })
	for _, page := range pages {
		if err := writeStagingFile(bs.StagingDir, page.RelPath, page.HTML); err != nil {
			return err
		}
		slog.Debug("Page compiled", logfields.Slug(page.Slug), logfields.Path(page.RelPath))
	}
	bs.Pages = pages
	bs.Report.PagesRendered = len(pages)
	return nil
}

// stageIndex writes the machine-readable post index and the home page.
func (a *Assembler) stageIndex(_ context.Context, bs *BuildState) error {
	data, err := marshalIndex(buildIndex(bs.Posts))
	if err != nil {
		return berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal, "build index")
	}
	if err := writeStagingFile(bs.StagingDir, "index.json", data); err != nil {
		return err
	}

	home, err := renderHome(a.cfg.Site, bs.Posts)
	if err != nil {
		return berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal, "build home page")
	}
	return writeStagingFile(bs.StagingDir, "index.html", home)
}

func (a *Assembler) stageFeed(_ context.Context, bs *BuildState) error {
	feed, err := renderFeed(a.cfg.Site, bs.Posts)
	if err != nil {
		return berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal, "build feed")
	}
	return writeStagingFile(bs.StagingDir, "feed.xml", feed)
}

func (a *Assembler) stageSitemap(_ context.Context, bs *BuildState) error {
	sm, err := renderSitemap(a.cfg.Site, bs.Posts)
	if err != nil {
		return berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal, "build sitemap")
	}
	return writeStagingFile(bs.StagingDir, "sitemap.xml", sm)
}

// stageAssets writes shared static assets, today just the syntax-highlight
// stylesheet matching the classes the renderer emits.
func (a *Assembler) stageAssets(_ context.Context, bs *BuildState) error {
	css, err := chromaStylesheet(a.compiler.mdOpts.HighlightStyle)
	if err != nil {
		return berrors.Wrap(err, berrors.CategoryCompile, berrors.SeverityFatal, "render highlight css")
	}
	return writeStagingFile(bs.StagingDir, "css/chroma.css", css)
}

// stageVerify cross-checks compiled pages against staged assets. Problems
// are warnings: the pages are valid HTML, the referenced asset just failed
// earlier in the build.
func (a *Assembler) stageVerify(_ context.Context, bs *BuildState) error {
	problems, err := verifyAssets(bs.StagingDir)
	if err != nil {
		return berrors.IOError(err, "verify staged output")
	}
	for _, p := range problems {
		warn := berrors.New(berrors.CategoryReference, berrors.SeverityWarning, p)
		bs.Report.addWarning(warn)
		slog.Warn("Staged page references missing asset", slog.String("problem", p))
	}
	return nil
}

// stagePromote atomically replaces the output dir with the staging dir. On
// any failure before the final rename the previous output stays in place.
func (a *Assembler) stagePromote(_ context.Context, bs *BuildState) error {
	old := bs.OutputDir + ".old-" + bs.Report.BuildID[:8]

	if _, err := os.Stat(bs.OutputDir); err == nil {
		if err := os.Rename(bs.OutputDir, old); err != nil {
			return berrors.IOError(err, "move previous output aside")
		}
	} else if !os.IsNotExist(err) {
		return berrors.IOError(err, "stat output dir")
	}

	if err := os.Rename(bs.StagingDir, bs.OutputDir); err != nil {
		// Try to restore the previous output before reporting.
		if _, statErr := os.Stat(old); statErr == nil {
			_ = os.Rename(old, bs.OutputDir)
		}
		return berrors.IOError(err, "promote staging dir")
	}
	bs.StagingDir = ""

	if err := os.RemoveAll(old); err != nil {
		slog.Warn("Failed to remove previous output", logfields.Path(old), logfields.Error(err))
	}
	return nil
}

// writeStagingFile writes a file under the staging dir, creating parents.
func writeStagingFile(stagingDir, rel string, data []byte) error {
	abs := filepath.Join(stagingDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return berrors.IOError(err, fmt.Sprintf("create dir for %s", rel))
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return berrors.IOError(err, fmt.Sprintf("write %s", rel))
	}
	return nil
}

// chromaStylesheet renders the CSS for the highlight classes the markdown
// renderer emits.
func chromaStylesheet(styleName string) ([]byte, error) {
	if styleName == "" {
		styleName = "github"
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	var buf bytes.Buffer
	if err := formatter.WriteCSS(&buf, styles.Get(styleName)); err != nil {
		return nil, fmt.Errorf("write chroma css: %w", err)
	}
	return buf.Bytes(), nil
}
