package credstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client, "wrs"), mr
}

func TestRedisBackendRoundTrip(t *testing.T) {
	b, mr := newRedisBackend(t)
	ctx := context.Background()

	if err := b.Set(ctx, KeyToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := b.Get(ctx, KeyToken); err != nil || got != "tok" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if !mr.Exists("wrs:token") {
		t.Fatal("entry must be namespaced under the prefix")
	}

	if ttl := mr.TTL("wrs:token"); ttl != 0 {
		t.Fatalf("entry must not carry a TTL, got %v", ttl)
	}
}

func TestRedisBackendMissingKey(t *testing.T) {
	b, _ := newRedisBackend(t)
	if _, err := b.Get(context.Background(), KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRedisBackendDelete(t *testing.T) {
	b, mr := newRedisBackend(t)
	ctx := context.Background()

	for _, k := range []string{KeyToken, KeyUser, KeyTokenExpiration} {
		if err := b.Set(ctx, k, "v"); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Delete(ctx, KeyToken, KeyUser, KeyTokenExpiration); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("wrs:token") || mr.Exists("wrs:user") || mr.Exists("wrs:tokenExpiration") {
		t.Fatal("Delete must remove all namespaced entries")
	}
	// Deleting absent keys is a no-op.
	if err := b.Delete(ctx, KeyToken); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	b := NewRedisBackend(client, "")
	mr.Close()

	if _, err := b.Get(context.Background(), KeyToken); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if err := b.Set(context.Background(), KeyToken, "x"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
}
