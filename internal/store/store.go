// AngelaMos | 2026
// store.go

package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/zacanbrcom/auditorium-booking/internal/codec"
	"github.com/zacanbrcom/auditorium-booking/internal/kv"
)

var ErrCorrupt = errors.New("store: entry does not decode")

// Store is a typed view of one partition. Keys and values pass through
// the DB codec; keys iterate in the byte order of their encoding.
type Store[K, V any] struct {
	db     *DB
	bucket kv.Bucket
	logger *slog.Logger
}

func (s *Store[K, V]) Name() string {
	return s.bucket.Name()
}

func (s *Store[K, V]) DB() *DB {
	return s.db
}

// Get returns the value stored under key. A missing entry, an entry that
// fails to decode, and a failed read all report ok=false; the last two
// are logged.
func (s *Store[K, V]) Get(ctx context.Context, key K) (V, bool) {
	v, ok, err := s.Lookup(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "read treated as absent", "error", err)
		var zero V
		return zero, false
	}
	return v, ok
}

// Lookup is Get with failures reported. Undecodable entries yield an
// error wrapping ErrCorrupt.
func (s *Store[K, V]) Lookup(ctx context.Context, key K) (V, bool, error) {
	var zero V

	k, err := s.encodeKey(key)
	if err != nil {
		return zero, false, err
	}

	raw, err := s.bucket.Get(ctx, k)
	if err != nil {
		return zero, false, err
	}
	if raw == nil {
		return zero, false, nil
	}

	var v V
	if err := s.db.codec.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("%s %x: %w: %w", s.Name(), k, ErrCorrupt, err)
	}

	return v, true, nil
}

// All iterates every entry in key order. Entries are read in batches,
// each in its own read transaction, so writes made during iteration may
// or may not be observed. Entries that fail to decode are skipped. A
// failed read ends the sequence early and is logged.
func (s *Store[K, V]) All(ctx context.Context) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var after []byte
		for {
			entries, err := s.bucket.Scan(ctx, after, s.db.scanBatch)
			if err != nil {
				s.logger.WarnContext(ctx, "scan aborted", "error", err)
				return
			}

			for _, e := range entries {
				var (
					k K
					v V
				)
				if err := s.db.codec.Unmarshal(e.Key, &k); err != nil {
					s.logSkipped(ctx, e, err)
					continue
				}
				if err := s.db.codec.Unmarshal(e.Value, &v); err != nil {
					s.logSkipped(ctx, e, err)
					continue
				}
				if !yield(k, v) {
					return
				}
			}

			if len(entries) < s.db.scanBatch {
				return
			}
			after = entries[len(entries)-1].Key
		}
	}
}

// Insert stores value under key, replacing any previous value, and
// reports whether one existed.
func (s *Store[K, V]) Insert(ctx context.Context, key K, value V) (bool, error) {
	k, err := s.encodeKey(key)
	if err != nil {
		return false, err
	}

	raw, err := s.db.codec.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode %s value: %w", s.Name(), err)
	}

	return s.bucket.Put(ctx, k, raw)
}

// Update replaces the value under key with the result of fn, atomically.
// fn receives the current value and whether it exists; returning false
// deletes the entry. If the current value does not decode, fn is not
// called, nothing is written and the error wraps ErrCorrupt. fn runs at
// most once, inside the write transaction, so it must not call back
// into the store.
func (s *Store[K, V]) Update(
	ctx context.Context,
	key K,
	fn func(cur V, ok bool) (V, bool),
) error {
	k, err := s.encodeKey(key)
	if err != nil {
		return err
	}

	return s.bucket.Update(ctx, k, func(old []byte) ([]byte, error) {
		var (
			cur V
			ok  bool
		)
		if old != nil {
			if err := s.db.codec.Unmarshal(old, &cur); err != nil {
				return nil, fmt.Errorf("%s %x: %w: %w", s.Name(), k, ErrCorrupt, err)
			}
			ok = true
		}

		next, keep := fn(cur, ok)
		if !keep {
			return nil, nil
		}

		raw, err := s.db.codec.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s value: %w", s.Name(), err)
		}
		return raw, nil
	})
}

func (s *Store[K, V]) Delete(ctx context.Context, key K) error {
	k, err := s.encodeKey(key)
	if err != nil {
		return err
	}
	return s.bucket.Delete(ctx, k)
}

// Len counts stored entries, including ones that would not decode.
func (s *Store[K, V]) Len(ctx context.Context) (int, error) {
	return s.bucket.Len(ctx)
}

func (s *Store[K, V]) encodeKey(key K) ([]byte, error) {
	k, err := s.db.codec.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encode %s key: %w", s.Name(), err)
	}
	return k, nil
}

func (s *Store[K, V]) logSkipped(ctx context.Context, e kv.Entry, err error) {
	attrs := []any{"key", fmt.Sprintf("%x", e.Key), "error", err}
	if diag, derr := codec.Diagnose(e.Value); derr == nil {
		attrs = append(attrs, "value", diag)
	}
	s.logger.WarnContext(ctx, "skipping undecodable entry", attrs...)
}
