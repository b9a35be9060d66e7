package logfields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorNil(t *testing.T) {
	attr := Error(nil)
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "", attr.Value.String())
}

func TestErrorNonNil(t *testing.T) {
	attr := Error(errors.New("boom"))
	assert.Equal(t, "boom", attr.Value.String())
}

func TestFieldKeys(t *testing.T) {
	assert.Equal(t, KeyStage, Stage("compile").Key)
	assert.Equal(t, KeySlug, Slug("hello-world").Key)
	assert.Equal(t, KeyWidth, Width(480).Key)
}
