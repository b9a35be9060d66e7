package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBasic(t *testing.T) {
	out, err := Render([]byte("# Title\n\nSome *emphasis*.\n"), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1 id=\"title\">Title</h1>")
	assert.Contains(t, string(out), "<em>emphasis</em>")
}

func TestRenderGFMTable(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	out, err := Render([]byte(src), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<table>")
}

func TestRenderHighlightsFencedCode(t *testing.T) {
	src := "```go\nfunc main() {}\n```\n"
	out, err := Render([]byte(src), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `data-lang="go"`)
	assert.Contains(t, string(out), "chroma")
}

func TestRenderPassesComponentTagsThrough(t *testing.T) {
	src := "Intro.\n\n<Widget mode=\"fast\" />\n\nOutro.\n"
	out, err := Render([]byte(src), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<Widget mode="fast" />`)
}

func TestExtractComponentRefs(t *testing.T) {
	body := []byte(`Intro.

<MonteCarloPi samples="5000" seed="42" />

Some prose.

<QuantileBand />
`)
	refs := ExtractComponentRefs(body)
	require.Len(t, refs, 2)
	assert.Equal(t, "MonteCarloPi", refs[0].Name)
	assert.Equal(t, map[string]string{"samples": "5000", "seed": "42"}, refs[0].Props)
	assert.Equal(t, []string{"samples", "seed"}, refs[0].PropNames())
	assert.Equal(t, "QuantileBand", refs[1].Name)
	assert.Empty(t, refs[1].Props)
}

func TestExtractComponentRefsInlineInParagraph(t *testing.T) {
	body := []byte(`Estimate pi with <MonteCarloPi samples="100" /> right in the text.`)
	refs := ExtractComponentRefs(body)
	require.Len(t, refs, 1)
	assert.Equal(t, "MonteCarloPi", refs[0].Name)
	assert.Equal(t, map[string]string{"samples": "100"}, refs[0].Props)
	assert.Equal(t, `<MonteCarloPi samples="100" />`, refs[0].Raw)
}

func TestExtractComponentRefsIgnoresCodeBlocks(t *testing.T) {
	body := []byte("Usage example:\n\n```\n<Widget mode=\"fast\" />\n```\n")
	refs := ExtractComponentRefs(body)
	assert.Empty(t, refs)
}

func TestExtractComponentRefsIgnoresLowercaseHTML(t *testing.T) {
	body := []byte("<div class=\"note\">plain html</div>\n")
	refs := ExtractComponentRefs(body)
	assert.Empty(t, refs)
}

func TestExtractImageRefs(t *testing.T) {
	body := []byte("![chart](./figures/chart.png)\n\nProse ![again](./figures/chart.png) and ![other](https://cdn.example.com/x.jpg).\n")
	refs := ExtractImageRefs(body)
	require.Len(t, refs, 2)
	assert.Equal(t, "./figures/chart.png", refs[0].Destination)
	assert.Equal(t, "https://cdn.example.com/x.jpg", refs[1].Destination)
}
