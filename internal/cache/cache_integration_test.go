//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/loanwise/loanwise/internal/model"
	"github.com/loanwise/loanwise/internal/testutil"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	ctx := context.Background()
	c, err := New(ctx, testutil.RequireEnv(t, "REDIS_URL"))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

func TestIntegrationIdentityCache(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	got, err := c.GetIdentity(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %+v, %v", got, err)
	}

	id := &model.Identity{UserID: "u1", Email: "a@example.com", IsSuperuser: true, TokenID: "jti"}
	if err := c.SetIdentity(ctx, "hash1", id, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err = c.GetIdentity(ctx, "hash1")
	if err != nil || got == nil || *got != *id {
		t.Fatalf("expected %+v, got %+v, %v", id, got, err)
	}

	ttl := c.Client().TTL(ctx, identityCachePrefix+"hash1").Val()
	if ttl > IdentityCacheTTL || ttl <= 0 {
		t.Errorf("unexpected ttl %v", ttl)
	}


	if err := c.SetIdentity(ctx, "hash2", id, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("set expired: %v", err)
	}
	if got, _ := c.GetIdentity(ctx, "hash2"); got != nil {
		t.Error("an expired token must not be cached")
	}
}

func TestIntegrationRateLimit_BurstThenReject(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for i := 0; i < 3; i++ {
		res, err := c.CheckUserRateLimit(ctx, "u1", 1, 3)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d should pass: %+v, %v", i, res, err)
		}
	}

	res, err := c.CheckUserRateLimit(ctx, "u1", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("fourth request should be rate limited")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", res.RetryAfter)
	}

	other, err := c.CheckUserRateLimit(ctx, "u2", 1, 3)
	if err != nil || !other.Allowed {
		t.Error("limits must be per user")
	}
}
