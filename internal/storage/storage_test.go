package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Simplici0/sweetcost/internal/db"
	"github.com/Simplici0/sweetcost/internal/migrations"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, values map[string][]byte) error
}

func newSQLite(t *testing.T) *SQLite {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(context.Background(), database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewSQLite(database)
}

func TestBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) kv{
		"memory": func(t *testing.T) kv { return NewMemory() },
		"sqlite": func(t *testing.T) kv { return newSQLite(t) },
	}

	for name, newKV := range backends {
		t.Run(name, func(t *testing.T) {
			store := newKV(t)
			ctx := context.Background()

			if _, ok, err := store.Get(ctx, "calculations"); err != nil || ok {
				t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
			}

			if err := store.Put(ctx, map[string][]byte{
				"calculations": []byte(`[]`),
				"prices":       []byte(`{"sugar":{}}`),
			}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := store.Put(ctx, map[string][]byte{"calculations": []byte(`[{"id":"1"}]`)}); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			got, ok, err := store.Get(ctx, "calculations")
			if err != nil || !ok {
				t.Fatalf("get calculations: ok=%v err=%v", ok, err)
			}
			if string(got) != `[{"id":"1"}]` {
				t.Fatalf("calculations=%s", got)
			}

			prices, ok, err := store.Get(ctx, "prices")
			if err != nil || !ok || string(prices) != `{"sugar":{}}` {
				t.Fatalf("prices=%s ok=%v err=%v", prices, ok, err)
			}
		})
	}
}

func TestSQLitePutRollsBackOnCancelledContext(t *testing.T) {
	store := newSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, map[string][]byte{"prices": []byte(`{}`)}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if _, ok, err := store.Get(context.Background(), "prices"); err != nil || ok {
		t.Fatalf("expected nothing written, got ok=%v err=%v", ok, err)
	}
}
