// AngelaMos | 2026
// db.go

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/zacanbrcom/auditorium-booking/internal/codec"
	"github.com/zacanbrcom/auditorium-booking/internal/kv"
)

const defaultScanBatch = 256

type Options struct {
	Codec     codec.Codec
	Logger    *slog.Logger
	ScanBatch int
}

// DB is the process-wide store handle. It owns the engine and hands out
// partition handles; the lock guards only handle acquisition; the engine
// does its own concurrency control for reads and writes.
type DB struct {
	engine    kv.Engine
	codec     codec.Codec
	logger    *slog.Logger
	scanBatch int

	mu      sync.RWMutex
	buckets map[string]kv.Bucket
}

func New(engine kv.Engine, opts Options) *DB {
	if opts.Codec == nil {
		opts.Codec = codec.CBOR{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ScanBatch <= 0 {
		opts.ScanBatch = defaultScanBatch
	}

	return &DB{
		engine:    engine,
		codec:     opts.Codec,
		logger:    opts.Logger,
		scanBatch: opts.ScanBatch,
		buckets:   make(map[string]kv.Bucket),
	}
}

// Partition returns the raw handle for name, opening or creating it on
// first use.
func (db *DB) Partition(ctx context.Context, name string) (kv.Bucket, error) {
	db.mu.RLock()
	b, ok := db.buckets[name]
	db.mu.RUnlock()
	if ok {
		return b, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if b, ok := db.buckets[name]; ok {
		return b, nil
	}

	b, err := db.engine.Bucket(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("acquire partition %q: %w", name, err)
	}
	db.buckets[name] = b

	return b, nil
}

// NextID allocates a store-wide unique identifier. Identifiers increase
// monotonically but may have gaps.
func (db *DB) NextID(ctx context.Context) (uint64, error) {
	return db.engine.NextID(ctx)
}

func (db *DB) Codec() codec.Codec {
	return db.codec
}

func (db *DB) Sync() error {
	if err := db.engine.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.engine.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

type PartitionStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Partitions reports every partition acquired so far, sorted by name.
func (db *DB) Partitions(ctx context.Context) ([]PartitionStats, error) {
	db.mu.RLock()
	buckets := make([]kv.Bucket, 0, len(db.buckets))
	for _, b := range db.buckets {
		buckets = append(buckets, b)
	}
	db.mu.RUnlock()

	slices.SortFunc(buckets, func(a, b kv.Bucket) int {
		return strings.Compare(a.Name(), b.Name())
	})

	out := make([]PartitionStats, 0, len(buckets))
	for _, b := range buckets {
		n, err := b.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", b.Name(), err)
		}
		out = append(out, PartitionStats{Name: b.Name(), Entries: n})
	}

	return out, nil
}

func (db *DB) Stats() kv.Stats {
	return db.engine.Stats()
}

func (db *DB) Close() error {
	return db.engine.Close()
}
