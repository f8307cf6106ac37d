package cache_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"algocrack/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type problem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc, err := cache.NewRedisCacheWithClient(client, cache.DefaultKeyPrefix)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func fetchProblem(ctx context.Context, c cache.Cache, key string, calls *int, result problem) (problem, error) {
	return cache.GetWithCached(ctx, c, key, time.Minute, time.Second,
		func(p problem) bool { return p.ID == 0 },
		cache.MarshalCompressed[problem](),
		cache.UnmarshalCompressed[problem](),
		func(context.Context) (problem, error) {
			*calls++
			return result, nil
		})
}

func TestGetWithCachedStoresCompressedValue(t *testing.T) {
	rc, mr := newRedisCache(t)
	ctx := context.Background()
	calls := 0
	want := problem{ID: 1, Title: strings.Repeat("Two Sum ", 20)}

	got, err := fetchProblem(ctx, rc, "problem:1", &calls, want)
	if err != nil || got != want {
		t.Fatalf("unexpected first fetch: %+v %v", got, err)
	}
	got, err = fetchProblem(ctx, rc, "problem:1", &calls, problem{ID: 1, Title: "changed"})
	if err != nil || got != want {
		t.Fatalf("unexpected cached fetch: %+v %v", got, err)
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}

	raw, err := mr.Get("algocrack:problem:1")
	if err != nil {
		t.Fatalf("key not namespaced: %v", err)
	}
	if strings.Contains(raw, "Two Sum") {
		t.Fatalf("cached value is not compressed")
	}
	ttl := mr.TTL("algocrack:problem:1")
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestGetWithCachedCachesEmpty(t *testing.T) {
	rc, _ := newRedisCache(t)
	ctx := context.Background()
	calls := 0

	for i := 0; i < 2; i++ {
		got, err := fetchProblem(ctx, rc, "problem:404", &calls, problem{})
		if err != nil || got.ID != 0 {
			t.Fatalf("unexpected fetch: %+v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("empty result not cached, calls=%d", calls)
	}
}

func TestGetWithCachedPropagatesFetchError(t *testing.T) {
	rc, _ := newRedisCache(t)
	boom := errors.New("boom")
	_, err := cache.GetWithCached(context.Background(), rc, "k", time.Minute, time.Second,
		func(p problem) bool { return p.ID == 0 },
		cache.MarshalCompressed[problem](),
		cache.UnmarshalCompressed[problem](),
		func(context.Context) (problem, error) { return problem{}, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if n, _ := rc.Exists(context.Background(), "k"); n != 0 {
		t.Fatalf("error result must not be cached")
	}
}

func TestGetWithCachedNilCache(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		if _, err := fetchProblem(context.Background(), nil, "k", &calls, problem{ID: 2}); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("nil cache must always fetch, calls=%d", calls)
	}
}

func TestInvalidate(t *testing.T) {
	rc, _ := newRedisCache(t)
	ctx := context.Background()
	if err := rc.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := cache.Invalidate(ctx, rc, "a"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if v, _ := rc.Get(ctx, "a"); v != "" {
		t.Fatalf("key survived invalidate: %q", v)
	}
	if err := cache.Invalidate(ctx, nil, "a"); err != nil {
		t.Fatalf("nil cache invalidate failed: %v", err)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	in := []byte(strings.Repeat("constraints: 1 <= n <= 10^5\n", 50))
	enc, err := cache.Compress(in)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if len(enc) >= len(in) {
		t.Fatalf("expected compression, %d >= %d", len(enc), len(in))
	}
	out, err := cache.Decompress(enc)
	if err != nil || string(out) != string(in) {
		t.Fatalf("round trip mismatch: %v", err)
	}
	if _, err := cache.Decompress("!!!"); err == nil {
		t.Fatalf("expected decode error")
	}
}
