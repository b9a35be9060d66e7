package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tverberg/blogsmith/internal/components"
	"github.com/tverberg/blogsmith/internal/config"
	berrors "github.com/tverberg/blogsmith/internal/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Site = config.SiteConfig{
		Title:       "Test Blog",
		BaseURL:     "https://example.com",
		Description: "A test blog",
		Author:      "Tester",
	}
	cfg.Content.Dir = filepath.Join(root, "content")
	cfg.Content.ExcerptLength = 280
	cfg.Content.WordsPerMinute = 200
	cfg.Images = config.ImagesConfig{
		Widths:  []int{480, 960},
		Formats: []string{"jpeg"},
		Quality: 85,
		Cache:   filepath.Join(root, "cache", "images.db"),
	}
	cfg.Output.Directory = filepath.Join(root, "public")
	cfg.Build.Concurrency = 2
	require.NoError(t, os.MkdirAll(cfg.Content.Dir, 0o755))
	return cfg
}

func testRegistry() *components.Registry {
	return components.NewRegistry(components.Component{
		Name: "MonteCarloPi",
		Props: map[string]components.PropSpec{
			"samples": {Type: components.PropInt, Default: "1000"},
		},
	})
}

func writePost(t *testing.T, cfg *config.Config, name, title, date, body string) {
	t.Helper()
	doc := fmt.Sprintf("---\ntitle: %s\ndate: %s\n---\n\n%s\n", title, date, body)
	path := filepath.Join(cfg.Content.Dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func writeContentPNG(t *testing.T, cfg *config.Config, rel string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(cfg.Content.Dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func readOutput(t *testing.T, cfg *config.Config, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Output.Directory, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return data
}

func readIndex(t *testing.T, cfg *config.Config) []IndexEntry {
	t.Helper()
	var entries []IndexEntry
	require.NoError(t, json.Unmarshal(readOutput(t, cfg, "index.json"), &entries))
	return entries
}

func TestBuildProducesCompleteSite(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "middle.md", "Middle Post", "2021-01-01", "Middle content here.")
	writePost(t, cfg, "newest.md", "Newest Post", "2021-02-01", "Newest content here.")
	writePost(t, cfg, "oldest.md", "Oldest Post", "2020-12-01", "Oldest content here.")

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 3, report.Posts)
	assert.Equal(t, 3, report.PagesRendered)

	entries := readIndex(t, cfg)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"newest", "middle", "oldest"},
		[]string{entries[0].Slug, entries[1].Slug, entries[2].Slug}, "index is newest first")

	for _, slug := range []string{"newest", "middle", "oldest"} {
		assert.FileExists(t, filepath.Join(cfg.Output.Directory, "blog", slug, "index.html"))
	}
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "index.html"))
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "feed.xml"))
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "sitemap.xml"))
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "css", "chroma.css"))

	feed := string(readOutput(t, cfg, "feed.xml"))
	assert.Contains(t, feed, "<title>Test Blog</title>")
	assert.Contains(t, feed, "https://example.com/blog/newest/")
}

func TestBuildIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "hello.md", "Hello", "2021-01-01", "Some stable content.")

	asm := New(cfg, testRegistry())
	_, err := asm.Build(context.Background())
	require.NoError(t, err)
	firstIndex := readOutput(t, cfg, "index.json")
	firstPage := readOutput(t, cfg, "blog/hello/index.html")

	_, err = asm.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, firstIndex, readOutput(t, cfg, "index.json"))
	assert.Equal(t, firstPage, readOutput(t, cfg, "blog/hello/index.html"))
}

func TestBuildFailsFastOnMalformedFrontmatter(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "good.md", "Good Post", "2021-01-01", "Fine content.")

	asm := New(cfg, testRegistry())
	_, err := asm.Build(context.Background())
	require.NoError(t, err)
	goodPage := readOutput(t, cfg, "blog/good/index.html")

	broken := "---\ntitle: Broken\n---\n\nNo date here.\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.Dir, "broken.md"), []byte(broken), 0o644))

	report, err := asm.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryContent))

	// Previous output stays intact and no staging dirs leak.
	assert.Equal(t, goodPage, readOutput(t, cfg, "blog/good/index.html"))
	leftovers, globErr := filepath.Glob(cfg.Output.Directory + ".staging-*")
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)
}

func TestBuildFailsOnUnknownComponent(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "widget.md", "Widget", "2021-01-01", "Intro.\n\n<NoSuchWidget />\n\nOutro.")

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryReference))
	assert.NoDirExists(t, cfg.Output.Directory)
}

func TestBuildWarnsOnMissingImage(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "pic.md", "Pic", "2021-01-01", "Look:\n\n![chart](./missing.png)\n\nDone.")

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err, "a broken image reference must not fail the build")
	assert.Equal(t, OutcomeWarning, report.Outcome)
	require.NotEmpty(t, report.Warnings)
	assert.True(t, berrors.IsCategory(report.Warnings[0], berrors.CategoryAsset))

	page := string(readOutput(t, cfg, "blog/pic/index.html"))
	assert.Contains(t, page, `src="./missing.png"`, "original reference is left in place")
}

func TestBuildWarnsOnCorruptImage(t *testing.T) {
	cfg := testConfig(t)
	bad := filepath.Join(cfg.Content.Dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	writePost(t, cfg, "pic.md", "Pic", "2021-01-01", "Look:\n\n![chart](./broken.png)\n\nDone.")

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err, "an undecodable image must not fail the build")
	assert.Equal(t, OutcomeWarning, report.Outcome)
	require.NotEmpty(t, report.Warnings)
	assert.True(t, berrors.IsCategory(report.Warnings[0], berrors.CategoryAsset))
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "blog", "pic", "index.html"))
}

func TestBuildProcessesImages(t *testing.T) {
	cfg := testConfig(t)
	writeContentPNG(t, cfg, "figures/chart.png", 1200, 600)
	writePost(t, cfg, "data.md", "Data", "2021-01-01", "Numbers:\n\n![chart](./figures/chart.png)\n\nDone.")

	asm := New(cfg, testRegistry())
	report, err := asm.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 2, report.ImagesProcessed)
	assert.Equal(t, 0, report.ImagesSkipped)

	page := string(readOutput(t, cfg, "blog/data/index.html"))
	assert.Contains(t, page, `srcset="`)
	assert.Contains(t, page, "/images/chart-")
	assert.NotContains(t, page, `src="./figures/chart.png"`)

	// Second run: every variant comes from the cache.
	report, err = asm.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.ImagesProcessed)
	assert.Equal(t, 2, report.ImagesSkipped)
}

func TestBuildRewritesEntityEscapedImageSources(t *testing.T) {
	cfg := testConfig(t)
	writeContentPNG(t, cfg, "figs/a&b.png", 600, 300)
	writePost(t, cfg, "amp.md", "Amp", "2021-01-01", "See:\n\n![ab](./figs/a&b.png)\n\nDone.")

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)

	// The rendered attribute carries &amp;; the rewrite must still hit it.
	page := string(readOutput(t, cfg, "blog/amp/index.html"))
	assert.Contains(t, page, `src="/images/a-b-`)
	assert.NotContains(t, page, `src="./figs/a&amp;b.png"`)
}

func TestBuildSkipsDraftsAndFuturePosts(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "live.md", "Live", "2021-01-01", "Published.")
	writePost(t, cfg, "future.md", "Future", "2999-01-01", "Not yet.")
	draft := "---\ntitle: Draft\ndate: 2021-01-02\ndraft: true\n---\n\nHidden.\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.Dir, "draft.md"), []byte(draft), 0o644))

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Posts)

	entries := readIndex(t, cfg)
	require.Len(t, entries, 1)
	assert.Equal(t, "live", entries[0].Slug)
	assert.NoDirExists(t, filepath.Join(cfg.Output.Directory, "blog", "draft"))
	assert.NoDirExists(t, filepath.Join(cfg.Output.Directory, "blog", "future"))
}

func TestBuildRendersComponentMount(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "sim.md", "Sim", "2021-01-01", "Try it:\n\n<MonteCarloPi samples=\"5000\" />\n\nDone.")

	_, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err)

	page := string(readOutput(t, cfg, "blog/sim/index.html"))
	assert.Contains(t, page, `data-component="monte-carlo-pi"`)
	assert.Contains(t, page, `data-props='{"samples":5000}'`)
	assert.NotContains(t, page, "<MonteCarloPi")
}

func TestBuildFailsOnDuplicateSlug(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "a/hello.md", "Hello A", "2021-01-01", "First.")
	writePost(t, cfg, "b/hello.md", "Hello B", "2021-01-02", "Second.")

	_, err := New(cfg, testRegistry()).Build(context.Background())
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryContent))
}

func TestBuildCanceledContext(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "hello.md", "Hello", "2021-01-01", "Content.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := New(cfg, testRegistry()).Build(ctx)
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestBuildReportSummary(t *testing.T) {
	cfg := testConfig(t)
	writePost(t, cfg, "hello.md", "Hello", "2021-01-01", "Content.")

	report, err := New(cfg, testRegistry()).Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Summary(), "posts=1")
	assert.Contains(t, report.Summary(), "outcome=success")
	assert.NotEmpty(t, report.StageDurations)
	assert.Contains(t, report.StageDurations, "compile")
	assert.True(t, report.End.After(report.Start) || report.End.Equal(report.Start))
}
