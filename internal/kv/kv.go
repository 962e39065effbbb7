// AngelaMos | 2026
// kv.go

package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

var (
	ErrInvalidName   = errors.New("kv: invalid partition name")
	ErrUnknownDriver = errors.New("kv: unknown driver")
)

var partitionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Entry is one key/value pair returned by a scan. Both slices are owned
// by the caller.
type Entry struct {
	Key   []byte `db:"k"`
	Value []byte `db:"v"`
}

// Bucket is a single named partition of the engine. Keys are compared
// byte-wise; scans return entries in ascending key order.
type Bucket interface {
	Name() string

	// Get returns nil when the key is absent.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Put overwrites unconditionally and reports whether a value existed.
	Put(ctx context.Context, key, value []byte) (bool, error)

	// Update runs fn on the current value (nil when absent) and stores
	// its result in the same transaction. A nil result deletes the key.
	// Concurrent updates of one key are serialized.
	Update(
		ctx context.Context,
		key []byte,
		fn func(old []byte) ([]byte, error),
	) error

	Delete(ctx context.Context, key []byte) error

	// Scan returns up to limit entries whose keys sort strictly after
	// after. A nil after starts at the first key.
	Scan(ctx context.Context, after []byte, limit int) ([]Entry, error)

	Len(ctx context.Context) (int, error)
}

type Engine interface {
	// Bucket opens the named partition, creating it if needed.
	Bucket(ctx context.Context, name string) (Bucket, error)

	// NextID returns a store-wide, monotonically increasing identifier.
	NextID(ctx context.Context) (uint64, error)

	Sync() error
	Ping(ctx context.Context) error
	Stats() Stats
	Close() error
}

type Stats struct {
	Driver  string         `json:"driver"`
	Path    string         `json:"path"`
	Details map[string]any `json:"details,omitempty"`
}

type Options struct {
	OpenTimeout time.Duration
	NoSync      bool
}

// Open opens the engine selected by driver at path.
func Open(driver, path string, opts Options) (Engine, error) {
	switch driver {
	case DriverBolt, "":
		e, err := OpenBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	case DriverSQLite:
		e, err := OpenSQLite(path, opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("open %q: %w", driver, ErrUnknownDriver)
	}
}

// ValidName reports whether name can be used as a partition name.
func ValidName(name string) bool {
	return partitionName.MatchString(name)
}
