package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/tverberg/blogsmith/internal/errors"
)

const validDoc = `---
title: Estimating Pi
date: 2021-01-01
tags: [Math, simulation, math]
description: Monte Carlo estimation of pi.
---
Throwing darts at a unit square is a surprisingly effective way to estimate pi.

` + "```go\nfunc inCircle(x, y float64) bool { return x*x+y*y < 1 }\n```" + `

<MonteCarloPi samples="5000" />

The more darts you throw, the closer the ratio gets.
`

func TestExtractValidPost(t *testing.T) {
	post, err := Extract("posts/estimating-pi.md", []byte(validDoc), ExtractOptions{})
	require.NoError(t, err)

	assert.Equal(t, "estimating-pi", post.Slug)
	assert.Equal(t, "Estimating Pi", post.Title)
	assert.Equal(t, 2021, post.Date.Year())
	assert.Equal(t, []string{"math", "simulation"}, post.Tags, "tags lowercased and deduplicated")
	assert.GreaterOrEqual(t, post.ReadingTime, 1)
	assert.NotEmpty(t, post.Excerpt)
	assert.Contains(t, string(post.Body), "MonteCarloPi", "body passes through untouched")
}

func TestExtractSlugOverride(t *testing.T) {
	doc := "---\ntitle: Hello\ndate: 2021-01-01\nslug: my-custom-slug\n---\nBody.\n"
	post, err := Extract("posts/2021-01-hello.md", []byte(doc), ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug", post.Slug)
}

func TestExtractMissingTitleIsContentError(t *testing.T) {
	doc := "---\ndate: 2021-01-01\n---\nBody.\n"
	_, err := Extract("posts/broken.md", []byte(doc), ExtractOptions{})
	require.Error(t, err)
	assert.True(t, berrors.IsFatal(err))
	assert.True(t, berrors.IsCategory(err, berrors.CategoryContent))
}

func TestExtractBadDateIsContentError(t *testing.T) {
	doc := "---\ntitle: Hello\ndate: someday\n---\nBody.\n"
	_, err := Extract("posts/broken.md", []byte(doc), ExtractOptions{})
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryContent))
}

func TestExcerptStopsAtParagraphBoundary(t *testing.T) {
	body := "First paragraph with a handful of words.\n\nSecond paragraph that would push the text past the limit if included.\n"
	got := Excerpt(body, 60)
	assert.Equal(t, "First paragraph with a handful of words.", got)
}

func TestExcerptTruncatesLongFirstParagraph(t *testing.T) {
	body := strings.Repeat("word ", 200)
	got := Excerpt(body, 50)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 52)
}

func TestExcerptSkipsCodeAndComponents(t *testing.T) {
	body := "```go\nsecret()\n```\n\n<Widget />\n\n![chart](./c.png)\n\nActual prose here.\n"
	got := Excerpt(body, 280)
	assert.Equal(t, "Actual prose here.", got)
	assert.NotContains(t, got, "secret")
}

func TestReadingTimeFloor(t *testing.T) {
	assert.Equal(t, 1, ReadingTime("a few words", 200))
	assert.Equal(t, 1, ReadingTime("", 200))
}

func TestReadingTimeRoundsUp(t *testing.T) {
	body := strings.Repeat("word ", 201)
	assert.Equal(t, 2, ReadingTime(body, 200))
}
