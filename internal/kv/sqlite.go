// AngelaMos | 2026
// sqlite.go

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sequenceTable = "kv__sequence"

// SQLiteEngine stores each partition in its own WITHOUT ROWID table keyed
// by a BLOB. A single connection serializes writers, which is what makes
// Update atomic per key.
type SQLiteEngine struct {
	db   *sqlx.DB
	path string
}

func OpenSQLite(path string, opts Options) (*SQLiteEngine, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	busy := opts.OpenTimeout.Milliseconds()
	if busy <= 0 {
		busy = 5000
	}

	synchronous := "FULL"
	if opts.NoSync {
		synchronous = "OFF"
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(%s)",
		path, busy, synchronous,
	)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on open failure
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS ` + sequenceTable + ` (
			id    INTEGER PRIMARY KEY CHECK (id = 1),
			value INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO ` + sequenceTable + ` (id, value) VALUES (1, 0)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close() //nolint:errcheck // cleanup on open failure
			return nil, fmt.Errorf("create sequence table: %w", err)
		}
	}

	return &SQLiteEngine{db: db, path: path}, nil
}

func (e *SQLiteEngine) Bucket(ctx context.Context, name string) (Bucket, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("bucket %q: %w", name, ErrInvalidName)
	}

	table := "kv_" + name
	stmt := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		k BLOB PRIMARY KEY,
		v BLOB NOT NULL
	) WITHOUT ROWID`

	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create bucket %q: %w", name, err)
	}

	return &sqliteBucket{db: e.db, name: name, table: table}, nil
}

func (e *SQLiteEngine) NextID(ctx context.Context) (uint64, error) {
	var id uint64
	err := inTx(ctx, e.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE `+sequenceTable+` SET value = value + 1 WHERE id = 1`)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &id,
			`SELECT value FROM `+sequenceTable+` WHERE id = 1`)
	})
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}

	return id, nil
}

func (e *SQLiteEngine) Sync() error {
	_, err := e.db.Exec(`PRAGMA wal_checkpoint(PASSIVE)`)
	return err
}

func (e *SQLiteEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *SQLiteEngine) Stats() Stats {
	s := e.db.Stats()
	return Stats{
		Driver: DriverSQLite,
		Path:   e.path,
		Details: map[string]any{
			"open_connections": s.OpenConnections,
			"in_use":           s.InUse,
			"idle":             s.Idle,
			"wait_count":       s.WaitCount,
			"wait_duration":    s.WaitDuration.String(),
		},
	}
}

func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}

type sqliteBucket struct {
	db    *sqlx.DB
	name  string
	table string
}

func (b *sqliteBucket) Name() string {
	return b.name
}

func (b *sqliteBucket) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := getValue(ctx, b.db, b.table, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.name, err)
	}
	return value, nil
}

func (b *sqliteBucket) Put(ctx context.Context, key, value []byte) (bool, error) {
	var existed bool
	err := inTx(ctx, b.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &existed,
			`SELECT EXISTS(SELECT 1 FROM `+b.table+` WHERE k = ?)`, key)
		if err != nil {
			return err
		}
		return upsert(ctx, tx, b.table, key, value)
	})
	if err != nil {
		return false, fmt.Errorf("put %s: %w", b.name, err)
	}

	return existed, nil
}

func (b *sqliteBucket) Update(
	ctx context.Context,
	key []byte,
	fn func(old []byte) ([]byte, error),
) error {
	err := inTx(ctx, b.db, func(tx *sqlx.Tx) error {
		old, err := getValue(ctx, tx, b.table, key)
		if err != nil {
			return err
		}

		next, err := fn(old)
		if err != nil {
			return err
		}

		if next == nil {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM `+b.table+` WHERE k = ?`, key)
			return err
		}
		return upsert(ctx, tx, b.table, key, next)
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", b.name, err)
	}

	return nil
}

func (b *sqliteBucket) Delete(ctx context.Context, key []byte) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM `+b.table+` WHERE k = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", b.name, err)
	}
	return nil
}

func (b *sqliteBucket) Scan(
	ctx context.Context,
	after []byte,
	limit int,
) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)

	if after == nil {
		err = b.db.SelectContext(ctx, &entries,
			`SELECT k, v FROM `+b.table+` ORDER BY k LIMIT ?`, limit)
	} else {
		err = b.db.SelectContext(ctx, &entries,
			`SELECT k, v FROM `+b.table+` WHERE k > ? ORDER BY k LIMIT ?`,
			after, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.name, err)
	}

	return entries, nil
}

func (b *sqliteBucket) Len(ctx context.Context) (int, error) {
	var n int
	if err := b.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+b.table); err != nil {
		return 0, fmt.Errorf("len %s: %w", b.name, err)
	}
	return n, nil
}

func getValue(
	ctx context.Context,
	q sqlx.QueryerContext,
	table string,
	key []byte,
) ([]byte, error) {
	var value []byte
	err := sqlx.GetContext(ctx, q, &value,
		`SELECT v FROM `+table+` WHERE k = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func upsert(ctx context.Context, tx *sqlx.Tx, table string, key, value []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO `+table+` (k, v) VALUES (?, ?)
		 ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		key, value)
	return err
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() //nolint:errcheck // best-effort rollback on panic
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
