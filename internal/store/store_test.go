// AngelaMos | 2026
// store_test.go

package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/kv"
)

type item struct {
	Name  string    `cbor:"name"`
	Count int       `cbor:"count"`
	At    time.Time `cbor:"at"`
}

var items = Table[uint64, item]{Name: "items"}

func newTestDB(t *testing.T, driver string, batch int) *DB {
	t.Helper()

	engine, err := kv.Open(driver, filepath.Join(t.TempDir(), "store.db"), kv.Options{NoSync: true})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}

	db := New(engine, Options{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ScanBatch: batch,
	})
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func drivers() []string {
	return []string{kv.DriverBolt, kv.DriverSQLite}
}

func TestInsertGetDelete(t *testing.T) {
	ctx := context.Background()

	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			db := newTestDB(t, driver, 0)
			s, err := Open(ctx, db, items)
			if err != nil {
				t.Fatalf("open table: %v", err)
			}

			at := time.Date(2024, 1, 1, 10, 0, 0, 123, time.UTC)
			existed, err := s.Insert(ctx, 7, item{Name: "seven", Count: 7, At: at})
			if err != nil || existed {
				t.Fatalf("insert existed=%v err=%v", existed, err)
			}

			existed, err = s.Insert(ctx, 7, item{Name: "seven", Count: 8, At: at})
			if err != nil || !existed {
				t.Fatalf("overwrite existed=%v err=%v", existed, err)
			}

			got, ok := s.Get(ctx, 7)
			if !ok {
				t.Fatal("expected value")
			}
			if got.Count != 8 || !got.At.Equal(at) {
				t.Fatalf("unexpected value %+v", got)
			}

			if _, ok := s.Get(ctx, 8); ok {
				t.Fatal("expected miss")
			}

			if err := s.Delete(ctx, 7); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok := s.Get(ctx, 7); ok {
				t.Fatal("expected miss after delete")
			}
		})
	}
}

func TestAllIteratesInKeyOrderAcrossBatches(t *testing.T) {
	ctx := context.Background()

	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			db := newTestDB(t, driver, 3)
			s, _ := Open(ctx, db, items)

			keys := []uint64{300, 2, 70000, 1, 24, 25, 256, 1 << 40}
			for _, k := range keys {
				if _, err := s.Insert(ctx, k, item{Count: int(k % 1000)}); err != nil {
					t.Fatal(err)
				}
			}

			var seen []uint64
			for k := range s.All(ctx) {
				seen = append(seen, k)
			}

			want := []uint64{1, 2, 24, 25, 256, 300, 70000, 1 << 40}
			if len(seen) != len(want) {
				t.Fatalf("got %v, want %v", seen, want)
			}
			for i := range want {
				if seen[i] != want[i] {
					t.Fatalf("got %v, want %v", seen, want)
				}
			}

			var n int
			for range s.All(ctx) {
				n++
				if n == 2 {
					break
				}
			}
			if n != 2 {
				t.Fatalf("early break yielded %d", n)
			}
		})
	}
}

func TestUndecodableEntries(t *testing.T) {
	ctx := context.Background()

	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			db := newTestDB(t, driver, 0)
			s, _ := Open(ctx, db, items)

			if _, err := s.Insert(ctx, 1, item{Name: "good"}); err != nil {
				t.Fatal(err)
			}

			raw, _ := db.Partition(ctx, "items")
			badKey, _ := db.Codec().Marshal(uint64(2))
			if _, err := raw.Put(ctx, badKey, []byte{0xff, 0x00}); err != nil {
				t.Fatal(err)
			}
			if _, err := raw.Put(ctx, []byte("not cbor key"), []byte{0xa0}); err != nil {
				t.Fatal(err)
			}

			if _, ok := s.Get(ctx, 2); ok {
				t.Fatal("corrupt entry must read as absent")
			}

			_, _, err := s.Lookup(ctx, 2)
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}

			var names []string
			for _, v := range s.All(ctx) {
				names = append(names, v.Name)
			}
			if len(names) != 1 || names[0] != "good" {
				t.Fatalf("expected only the good entry, got %v", names)
			}

			n, _ := s.Len(ctx)
			if n != 3 {
				t.Fatalf("len counts raw entries, got %d", n)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			db := newTestDB(t, driver, 0)
			s, _ := Open(ctx, db, items)

			err := s.Update(ctx, 1, func(cur item, ok bool) (item, bool) {
				if ok {
					t.Error("expected absent")
				}
				return item{Name: "created", Count: 1}, true
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}

			err = s.Update(ctx, 1, func(cur item, ok bool) (item, bool) {
				if !ok || cur.Name != "created" {
					t.Errorf("unexpected current %+v ok=%v", cur, ok)
				}
				cur.Count++
				return cur, true
			})
			if err != nil {
				t.Fatal(err)
			}

			got, _ := s.Get(ctx, 1)
			if got.Count != 2 {
				t.Fatalf("count = %d", got.Count)
			}

			err = s.Update(ctx, 1, func(item, bool) (item, bool) {
				return item{}, false
			})
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := s.Get(ctx, 1); ok {
				t.Fatal("expected entry removed")
			}
		})
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	const workers = 25

	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			db := newTestDB(t, driver, 0)
			s, _ := Open(ctx, db, items)

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := s.Update(ctx, 9, func(cur item, _ bool) (item, bool) {
						cur.Count++
						return cur, true
					})
					if err != nil {
						t.Errorf("update: %v", err)
					}
				}()
			}
			wg.Wait()

			got, _ := s.Get(ctx, 9)
			if got.Count != workers {
				t.Fatalf("count = %d, want %d", got.Count, workers)
			}
		})
	}
}

func TestCustomAcquire(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, kv.DriverBolt, 0)

	failing := Table[string, item]{
		Name: "broken",
		Acquire: func(context.Context, *DB, string) (kv.Bucket, error) {
			return nil, errors.New("schema mismatch")
		},
	}
	if _, err := Open(ctx, db, failing); err == nil {
		t.Fatal("expected acquisition failure")
	}

	raw, _ := db.Partition(ctx, "checked")
	_, _ = raw.Put(ctx, []byte{0x61, 0x61}, []byte{0xff})

	checked := Table[string, item]{Name: "checked", Acquire: VerifyDecodable[string, item](10)}
	_, err := Open(ctx, db, checked)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	clean := Table[string, item]{Name: "clean", Acquire: VerifyDecodable[string, item](10)}
	s, err := Open(ctx, db, clean)
	if err != nil {
		t.Fatalf("open clean table: %v", err)
	}
	if _, err := s.Insert(ctx, "a", item{Name: "a"}); err != nil {
		t.Fatal(err)
	}
}

func TestNextIDAndPartitions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, kv.DriverBolt, 0)

	a, _ := db.NextID(ctx)
	b, _ := db.NextID(ctx)
	if b <= a {
		t.Fatalf("ids not increasing: %d then %d", a, b)
	}

	users := Table[string, item]{Name: "users"}
	s, _ := Open(ctx, db, users)
	_, _ = s.Insert(ctx, "x", item{})
	_, _ = Open(ctx, db, items)

	parts, err := db.Partitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 || parts[0].Name != "items" || parts[1].Name != "users" {
		t.Fatalf("unexpected partitions %+v", parts)
	}
	if parts[1].Entries != 1 {
		t.Fatalf("users entries = %d", parts[1].Entries)
	}

	if err := db.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestCollectAndEntryJSON(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, kv.DriverBolt, 0)
	s, _ := Open(ctx, db, items)

	for i := uint64(1); i <= 4; i++ {
		_, _ = s.Insert(ctx, i, item{Name: "n", Count: int(i)})
	}

	even := Collect(s.All(ctx), func(_ uint64, v item) bool { return v.Count%2 == 0 })
	if len(even) != 2 || even[0].Key != 2 || even[1].Key != 4 {
		t.Fatalf("unexpected entries %+v", even)
	}

	data, err := json.Marshal(Entry[uint64, string]{Key: 3, Value: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[3,"x"]` {
		t.Fatalf("entry json = %s", data)
	}

	empty := Collect(s.All(ctx), func(uint64, item) bool { return false })
	data, _ = json.Marshal(empty)
	if string(data) != "[]" {
		t.Fatalf("empty collection json = %s", data)
	}
}

func TestUpdateRefusesCorruptEntry(t *testing.T) {
	ctx := context.Background()

	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			db := newTestDB(t, driver, 0)
			s, _ := Open(ctx, db, items)

			raw, _ := db.Partition(ctx, "items")
			key, _ := db.Codec().Marshal(uint64(5))
			_, _ = raw.Put(ctx, key, []byte{0xff})

			called := false
			err := s.Update(ctx, 5, func(cur item, ok bool) (item, bool) {
				called = true
				return item{}, false
			})
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
			if called {
				t.Fatal("transform must not run on a corrupt entry")
			}

			got, _ := raw.Get(ctx, key)
			if len(got) != 1 || got[0] != 0xff {
				t.Fatalf("corrupt entry was rewritten: %x", got)
			}
		})
	}
}
