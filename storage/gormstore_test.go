package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s, err := NewGormStore(db)
	require.NoError(t, err)
	return s
}

func TestGormStoreGetPutHas(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("john_profile", `{"name":"John"}`))
	v, ok, err := s.Get("john_profile")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"John"}`, v)

	has, err := s.Has("john_profile")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGormStorePutUpserts(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("k", "first"))
	require.NoError(t, s.Put("k", "second"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}
