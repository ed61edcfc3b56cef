package taskstore

import (
	"errors"
	"fmt"
)

const (
	// TypeMemory selects the in-memory store. Tasks are lost on restart.
	TypeMemory = "memory"
	// TypeSQLite selects the SQLite-backed store.
	TypeSQLite = "sqlite"
)

type Config struct {
	// Type selects the backing store, either memory or sqlite.
	// It defaults to memory.
	Type string `koanf:"type"`
	// SQLite holds the configuration of the SQLite-backed store.
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	// Path is the location of the database file.
	Path string `koanf:"path"`
}

func DefaultConfig() Config {
	return Config{
		Type: TypeMemory,
	}
}

func (c Config) Validate(strictMode bool) error {
	switch c.Type {
	case "", TypeMemory:
		if strictMode {
			return errors.New("a durable task store (sqlite) is required in strict mode")
		}
	case TypeSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite task store requires a database path")
		}
	default:
		return fmt.Errorf("invalid task store type: %s", c.Type)
	}
	return nil
}

// New creates the store selected by the given configuration.
func New(config Config) (Store, error) {
	switch config.Type {
	case "", TypeMemory:
		return NewMemoryStore(), nil
	case TypeSQLite:
		return NewSQLiteStore(config.SQLite.Path)
	default:
		return nil, fmt.Errorf("invalid task store type: %s", config.Type)
	}
}
