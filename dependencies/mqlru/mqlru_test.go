package mqlru

import (
	"context"
	"testing"
	"time"

	_ "github.com/saba2003/devcamper-api/dependencies/broker/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type principal struct {
	ID   string `json:"_id"`
	Role string `json:"role"`
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, "cache://memory?ttl=1m&capacity=10")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close(ctx)
	var p principal
	if err = l.Get(ctx, "u1", &p); status.Code(err) != codes.NotFound {
		t.Fatalf("Get() error = %v, want NotFound", err)
	}
	calls := 0
	load := func(context.Context) (principal, error) {
		calls++
		return principal{ID: "u1", Role: "publisher"}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := GetOrNew(ctx, l, "u1", load)
		if err != nil {
			t.Fatal(err)
		}
		if got.Role != "publisher" {
			t.Errorf("got %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if err = l.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err = l.Get(ctx, "u1", &p); status.Code(err) != codes.NotFound {
		t.Fatalf("a deleted key should be NotFound, got %v", err)
	}
}

func TestFanout(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, "memory://lru-fanout/principals?ttl=1m")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)
	b, err := New(ctx, "memory://lru-fanout/principals?ttl=1m")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)
	if err = a.Set(ctx, "u1", principal{ID: "u1", Role: "user"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		var p principal
		return b.Get(ctx, "u1", &p) == nil && p.Role == "user"
	})
	if err = a.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		var p principal
		return status.Code(b.Get(ctx, "u1", &p)) == codes.NotFound
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}
