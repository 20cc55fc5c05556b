package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	s := NewMemStore()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("k", "v1"))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	// overwrite
	require.NoError(t, s.Put("k", "v2"))
	v, _, _ = s.Get("k")
	assert.Equal(t, "v2", v)

	has, err := s.Has("k")
	require.NoError(t, err)
	assert.True(t, has)
	has, _ = s.Has("missing")
	assert.False(t, has)
}
