package store

import (
	"context"
	"errors"

	"github.com/BaSui01/truffle/internal/database"
	"github.com/BaSui01/truffle/marker"
	"github.com/BaSui01/truffle/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("marker not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
)

// Key addresses a cache entry. Document is the serialized document markup;
// it is hashed by the store and never kept verbatim.
type Key struct {
	Document string
	Action   string
	// StableID optionally names the target directly, bypassing the fingerprint.
	StableID string
}

// Store caches markers per (document fingerprint, action) with an optional
// stable id index.
//
// Operations are linearizable per key. The stable id index is filled lazily
// and is not invalidated when the primary entry it was copied from changes.
type Store interface {
	// Get checks the stable id index first (when Key.StableID is set), then the
	// fingerprint table. A fingerprint hit back-fills the stable id index.
	// Returns ErrNotFound on a miss.
	Get(ctx context.Context, key Key) (marker.Marker, error)

	// Put overwrites the primary entry and, when set, the stable id entry.
	Put(ctx context.Context, key Key, m marker.Marker) error

	// Remove deletes the primary entry only if it currently equals m, and
	// deletes the stable id entry unconditionally. It reports whether the
	// primary entry was removed.
	Remove(ctx context.Context, key Key, m marker.Marker) (bool, error)

	// Reset clears all entries.
	Reset(ctx context.Context) error

	// Export returns every entry as records.
	Export(ctx context.Context) (*Snapshot, error)

	// Import merges a snapshot, overwriting colliding keys.
	Import(ctx context.Context, snap *Snapshot) error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error

	// Close closes the store and releases resources
	Close() error
}

// Snapshot is the portable export format:
//
//	{"entries": {fingerprint: {action: record}}, "stableIdIndex": {id: record}}
type Snapshot struct {
	Entries       map[string]map[string]marker.Record `json:"entries"`
	StableIDIndex map[string]marker.Record            `json:"stableIdIndex"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Entries:       make(map[string]map[string]marker.Record),
		StableIDIndex: make(map[string]marker.Record),
	}
}

// Set records an entry in the snapshot.
func (s *Snapshot) Set(fingerprint, action string, rec marker.Record) {
	if s.Entries == nil {
		s.Entries = make(map[string]map[string]marker.Record)
	}
	actions, ok := s.Entries[fingerprint]
	if !ok {
		actions = make(map[string]marker.Record)
		s.Entries[fingerprint] = actions
	}
	actions[action] = rec
}

// Len returns the number of primary entries.
func (s *Snapshot) Len() int {
	n := 0
	for _, actions := range s.Entries {
		n += len(actions)
	}
	return n
}

// StoreConfig is the base configuration for all store implementations
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type" env:"TYPE"`

	// Fingerprint selects how document markup is turned into a cache key
	Fingerprint FingerprintMode `json:"fingerprint" yaml:"fingerprint" env:"FINGERPRINT"`

	// BaseDir is the directory of the file backend
	BaseDir string `json:"base_dir" yaml:"base_dir" env:"BASE_DIR"`

	// FileName is the snapshot file inside BaseDir
	FileName string `json:"file_name" yaml:"file_name" env:"FILE_NAME"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisStoreConfig `json:"redis" yaml:"redis" env:"REDIS"`

	// SQL configuration (only used when Type is "sql")
	SQL SQLStoreConfig `json:"sql" yaml:"sql" env:"SQL"`
}

// RedisStoreConfig contains Redis-specific configuration
type RedisStoreConfig struct {
	Host      string `json:"host" yaml:"host" env:"HOST"`
	Port      int    `json:"port" yaml:"port" env:"PORT"`
	Password  string `json:"password" yaml:"password" env:"PASSWORD"`
	DB        int    `json:"db" yaml:"db" env:"DB"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX"`
	TLS       bool   `json:"tls" yaml:"tls" env:"TLS"`
}

// SQLStoreConfig contains gorm-specific configuration
type SQLStoreConfig struct {
	Database database.Config `json:"database" yaml:"database" env:"DB"`

	// AutoMigrate creates the tables with gorm instead of relying on
	// `truffle migrate up`.
	AutoMigrate bool `json:"auto_migrate" yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:        StoreTypeMemory,
		Fingerprint: FingerprintRaw,
		BaseDir:     "./data/truffle",
		FileName:    "markers.json",
		Redis: RedisStoreConfig{
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			PoolSize:  10,
			KeyPrefix: "truffle:",
		},
		SQL: SQLStoreConfig{
			Database:    database.DefaultConfig(),
			AutoMigrate: true,
		},
	}
}

func unavailable(op string, err error) error {
	return types.Errorf(types.ErrStoreUnavailable, "%s failed", op).WithCause(err)
}
