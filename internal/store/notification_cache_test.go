package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/transfa/wallet-gateway/internal/domain"
)

func sampleNotifications() []domain.Notification {
	return []domain.Notification{
		{ID: "n2", Type: domain.NotificationSuccess, Title: "Welcome Back!", Message: "Login successful", Time: "10:00:00"},
		{ID: "n1", Type: domain.NotificationError, Title: "Account Error", Message: "Failed to load account", Time: "09:59:00", Persistent: true, Read: true},
	}
}

func exerciseCache(t *testing.T, cache NotificationCache) {
	t.Helper()
	ctx := context.Background()

	empty, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("load empty cache: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty cache, got %d entries", len(empty))
	}

	want := sampleNotifications()
	if err := cache.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestMemoryNotificationCache(t *testing.T) {
	cache := NewMemoryNotificationCache()
	exerciseCache(t, cache)

	// Mutating a loaded slice must not leak into the cache.
	got, _ := cache.Load(context.Background())
	got[0].Read = true
	again, _ := cache.Load(context.Background())
	if again[0].Read {
		t.Fatal("expected cache to hold its own copy")
	}
}

func TestFileNotificationCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "notifications.json")
	exerciseCache(t, NewFileNotificationCache(path))

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp file to be renamed away, got %v", err)
	}
}

func TestFileNotificationCacheCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileNotificationCache(path).Load(context.Background()); err == nil {
		t.Fatal("expected decode error for corrupt cache")
	}
}

func TestRedisNotificationCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseCache(t, NewRedisNotificationCache(client, "gw"))

	if !mr.Exists("gw:notifications") {
		t.Fatal("expected key gw:notifications to exist")
	}
}

type rowStub struct {
	payload []byte
	err     error
}

func (r rowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.payload
	return nil
}

type querierStub struct {
	rows map[string][]byte
	sql  []string
}

func (q *querierStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	if strings.Contains(sql, "INSERT INTO wallet_notification_cache") {
		q.rows[args[0].(string)] = args[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (q *querierStub) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	payload, ok := q.rows[args[0].(string)]
	if !ok {
		return rowStub{err: pgx.ErrNoRows}
	}
	return rowStub{payload: payload}
}

func TestPostgresNotificationCache(t *testing.T) {
	db := &querierStub{rows: map[string][]byte{}}
	cache := NewPostgresNotificationCache(db, "gw")

	if err := cache.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS wallet_notification_cache") {
		t.Fatalf("unexpected schema statement %q", db.sql[0])
	}

	exerciseCache(t, cache)

	if err := cache.Save(context.Background(), nil); err != nil {
		t.Fatalf("save nil: %v", err)
	}
	var stored []domain.Notification
	if err := json.Unmarshal(db.rows["gw"], &stored); err != nil || stored == nil {
		t.Fatalf("expected an empty JSON array for a cleared list, got %s", db.rows["gw"])
	}
}
