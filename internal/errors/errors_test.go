package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentFormatErrorIsFatal(t *testing.T) {
	err := ContentFormatError("posts/broken.md", "missing required field: title")
	assert.True(t, IsFatal(err))
	assert.True(t, IsCategory(err, CategoryContent))
	assert.Contains(t, err.Error(), "missing required field")
	assert.Equal(t, "posts/broken.md", err.Context["file"])
}

func TestAssetProcessingErrorIsWarning(t *testing.T) {
	cause := errors.New("image: unknown format")
	err := AssetProcessingError("figures/plot.png", cause)
	assert.False(t, IsFatal(err))
	assert.True(t, IsCategory(err, CategoryAsset))
	assert.ErrorIs(t, err, cause)
}

func TestUnknownReferenceError(t *testing.T) {
	err := UnknownReferenceError("posts/demo.md", "MonteCarloPi")
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), `unknown component "MonteCarloPi"`)
}

func TestIOErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := IOError(cause, "write index.json")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, CategoryFileSystem, GetCategory(err))
}

func TestGetCategoryPlainError(t *testing.T) {
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestIsFatalWrappedBuildError(t *testing.T) {
	inner := ContentFormatError("a.md", "no date")
	wrapped := fmt.Errorf("extract stage: %w", inner)
	assert.True(t, IsFatal(wrapped))
	assert.True(t, IsCategory(wrapped, CategoryContent))
}
