package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	type view struct {
		Total int64 `json:"total"`
	}
	c := NewRedisCache[view](client, "test:views:", time.Minute)
	if err := c.Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}

	c.Set(ctx, "ledger", view{Total: 42})
	got, ok := c.Get(ctx, "ledger")
	if !ok || got.Total != 42 {
		t.Fatalf("expected cached view, got %+v %v", got, ok)
	}
	if err := c.Delete(ctx, "ledger"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := c.Get(ctx, "ledger"); ok {
		t.Fatal("deleted key still served")
	}
}
