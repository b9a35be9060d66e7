package site

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tverberg/blogsmith/internal/content"
)

func TestIndexRoundTrip(t *testing.T) {
	posts := []content.Post{
		{Slug: "b", Title: "B", Date: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC),
			Tags: []string{"go"}, Excerpt: "Second post.", ReadingTime: 2},
		{Slug: "a", Title: "A", Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			Description: "first", Excerpt: "First post.", ReadingTime: 1},
	}

	entries := buildIndex(posts)
	data, err := marshalIndex(entries)
	require.NoError(t, err)

	var parsed []IndexEntry
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, entries, parsed, "serialize then parse preserves the ordered sequence")
}

func TestIndexPreservesPostOrder(t *testing.T) {
	posts := []content.Post{
		{Slug: "newest", Date: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "middle", Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "oldest", Date: time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)},
	}
	entries := buildIndex(posts)
	require.Len(t, entries, 3)
	assert.Equal(t, "2021-02-01", entries[0].Date)
	assert.Equal(t, "2021-01-01", entries[1].Date)
	assert.Equal(t, "2020-12-01", entries[2].Date)
}
