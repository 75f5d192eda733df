package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	a := ContentHash("Build a web app with user authentication")
	b := ContentHash("Build a web app with user authentication")
	c := ContentHash("Build a web app with user authentication!")

	assert.Len(t, a, 16)
	assert.Equal(t, a, b, "same content must hash identically")
	assert.NotEqual(t, a, c)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "capability", CacheKey("capability"))
	assert.Equal(t, "capability:decomposition:abc", CacheKey("capability", "decomposition", "abc"))
}
