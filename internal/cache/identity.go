package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loanwise/loanwise/internal/model"
)

const (
	identityCachePrefix = "auth:identity:"
	// IdentityCacheTTL bounds how long a deactivated user can keep using a
	// token that was cached while active.
	IdentityCacheTTL = 5 * time.Minute
)

type cachedIdentity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
	TokenID     string `json:"token_id"`
}

// GetIdentity returns the identity cached under tokenHash.
// A miss returns nil, nil.
func (c *Cache) GetIdentity(ctx context.Context, tokenHash string) (*model.Identity, error) {
	data, err := c.client.Get(ctx, identityCachePrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	var cached cachedIdentity
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Identity{
		UserID:      cached.UserID,
		Email:       cached.Email,
		IsSuperuser: cached.IsSuperuser,
		TokenID:     cached.TokenID,
	}, nil
}

// SetIdentity caches id under tokenHash. The TTL never outlives the token.
func (c *Cache) SetIdentity(ctx context.Context, tokenHash string, id *model.Identity, tokenExpiry time.Time) error {
	ttl := IdentityCacheTTL
	if remaining := time.Until(tokenExpiry); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cachedIdentity{
		UserID:      id.UserID,
		Email:       id.Email,
		IsSuperuser: id.IsSuperuser,
		TokenID:     id.TokenID,
	})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return c.client.Set(ctx, identityCachePrefix+tokenHash, data, ttl).Err()
}
