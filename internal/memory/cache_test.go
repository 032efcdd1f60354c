package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vova111/skyrga/internal/storage"
)

func TestDomainCache(t *testing.T) {
	c := NewDomainCache()
	assert.Nil(t, c.Get("example.com"))

	c.Put(&storage.Domain{ID: 4, Domain: "example.com", Rating: 30})

	got := c.Get("example.com")
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.ID)

	// Mutating the returned copy must not leak into the cache
	got.Rating = 99
	assert.Equal(t, 30, c.Get("example.com").Rating)

	size, hits := c.GetStats()
	assert.Equal(t, 1, size)
	assert.Equal(t, 2, hits)

	c.Forget("example.com")
	assert.Nil(t, c.Get("example.com"))
	size, _ = c.GetStats()
	assert.Zero(t, size)

	c.Put(nil)
	size, _ = c.GetStats()
	assert.Zero(t, size)
}
