// AngelaMos | 2026
// bolt.go

package kv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// metaBucket holds the id sequence. Its leading underscores keep it out
// of the partition namespace.
var metaBucket = []byte("__meta")

type BoltEngine struct {
	db *bolt.DB
}

func OpenBolt(path string, opts Options) (*BoltEngine, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: opts.OpenTimeout,
		NoSync:  opts.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on open failure
		return nil, fmt.Errorf("create meta bucket: %w", err)
	}

	return &BoltEngine{db: db}, nil
}

func (e *BoltEngine) Bucket(ctx context.Context, name string) (Bucket, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("bucket %q: %w", name, ErrInvalidName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := e.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %q: %w", name, err)
	}

	return &boltBucket{db: e.db, name: []byte(name)}, nil
}

func (e *BoltEngine) NextID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var id uint64
	err := e.db.Update(func(tx *bolt.Tx) error {
		var err error
		id, err = tx.Bucket(metaBucket).NextSequence()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}

	return id, nil
}

func (e *BoltEngine) Sync() error {
	return e.db.Sync()
}

func (e *BoltEngine) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.View(func(*bolt.Tx) error { return nil })
}

func (e *BoltEngine) Stats() Stats {
	s := e.db.Stats()
	return Stats{
		Driver: DriverBolt,
		Path:   e.db.Path(),
		Details: map[string]any{
			"read_tx":      s.TxN,
			"open_read_tx": s.OpenTxN,
			"free_pages":   s.FreePageN,
			"pending_page": s.PendingPageN,
		},
	}
}

func (e *BoltEngine) Close() error {
	return e.db.Close()
}

type boltBucket struct {
	db   *bolt.DB
	name []byte
}

func (b *boltBucket) Name() string {
	return string(b.name)
}

func (b *boltBucket) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx)
		if err != nil {
			return err
		}
		value = clone(bucket.Get(key))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.name, err)
	}

	return value, nil
}

func (b *boltBucket) Put(ctx context.Context, key, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var existed bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx)
		if err != nil {
			return err
		}
		existed = bucket.Get(key) != nil
		return bucket.Put(key, value)
	})
	if err != nil {
		return false, fmt.Errorf("put %s: %w", b.name, err)
	}

	return existed, nil
}

func (b *boltBucket) Update(
	ctx context.Context,
	key []byte,
	fn func(old []byte) ([]byte, error),
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx)
		if err != nil {
			return err
		}

		next, err := fn(clone(bucket.Get(key)))
		if err != nil {
			return err
		}

		if next == nil {
			return bucket.Delete(key)
		}
		return bucket.Put(key, next)
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", b.name, err)
	}

	return nil
}

func (b *boltBucket) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx)
		if err != nil {
			return err
		}
		return bucket.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", b.name, err)
	}

	return nil
}

func (b *boltBucket) Scan(
	ctx context.Context,
	after []byte,
	limit int,
) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx)
		if err != nil {
			return err
		}

		c := bucket.Cursor()
		var k, v []byte
		if after == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(after)
			if k != nil && bytes.Equal(k, after) {
				k, v = c.Next()
			}
		}

		for ; k != nil && len(entries) < limit; k, v = c.Next() {
			entries = append(entries, Entry{Key: clone(k), Value: clone(v)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.name, err)
	}

	return entries, nil
}

func (b *boltBucket) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := b.bucket(tx)
		if err != nil {
			return err
		}
		n = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("len %s: %w", b.name, err)
	}

	return n, nil
}

func (b *boltBucket) bucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket(b.name)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s missing", b.name)
	}
	return bucket, nil
}

// clone copies bolt-owned memory, which is only valid inside its
// transaction.
func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
