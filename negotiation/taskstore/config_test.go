package taskstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults to memory", func(t *testing.T) {
		store, err := New(Config{})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})
	t.Run("memory", func(t *testing.T) {
		store, err := New(Config{Type: TypeMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})
	t.Run("sqlite", func(t *testing.T) {
		config := Config{
			Type: TypeSQLite,
			SQLite: SQLiteConfig{
				Path: filepath.Join(t.TempDir(), "tasks.db"),
			},
		}
		store, err := New(config)
		require.NoError(t, err)
		require.IsType(t, &SQLiteStore{}, store)
		require.NoError(t, store.(*SQLiteStore).Close())
	})
	t.Run("invalid type", func(t *testing.T) {
		_, err := New(Config{Type: "postgres"})
		assert.EqualError(t, err, "invalid task store type: postgres")
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("memory is allowed outside strict mode", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate(false))
	})
	t.Run("memory is rejected in strict mode", func(t *testing.T) {
		assert.EqualError(t, DefaultConfig().Validate(true), "a durable task store (sqlite) is required in strict mode")
	})
	t.Run("sqlite requires a database path", func(t *testing.T) {
		assert.EqualError(t, Config{Type: TypeSQLite}.Validate(true), "sqlite task store requires a database path")
	})
	t.Run("sqlite", func(t *testing.T) {
		config := Config{
			Type: TypeSQLite,
			SQLite: SQLiteConfig{
				Path: "/data/tasks.db",
			},
		}
		assert.NoError(t, config.Validate(true))
	})
	t.Run("invalid type", func(t *testing.T) {
		assert.EqualError(t, Config{Type: "postgres"}.Validate(false), "invalid task store type: postgres")
	})
}
