package remote

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ItemIDLookup resolves a variant's inventory item on the remote API.
type ItemIDLookup interface {
	GetInventoryItemID(ctx context.Context, creds Credentials, variantID string) (string, error)
}

// ItemIDCache is the redis surface used to memoize item lookups.
type ItemIDCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ItemIDKey(shopID, variantID string) string
}

// ItemIDResolver memoizes inventory item lookups in redis. Item IDs
// never change for a variant, so a stale cache entry is harmless and a
// cache outage only costs extra API calls.
type ItemIDResolver struct {
	lookup ItemIDLookup
	cache  ItemIDCache
	ttl    time.Duration
}

// NewItemIDResolver wraps a lookup with a redis-backed cache. cache may
// be nil, in which case every call hits the API.
func NewItemIDResolver(lookup ItemIDLookup, cache ItemIDCache, ttl time.Duration) (*ItemIDResolver, error) {
	if lookup == nil {
		return nil, errors.New("remote: item lookup is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &ItemIDResolver{lookup: lookup, cache: cache, ttl: ttl}, nil
}

// Resolve returns the inventory item ID for a variant on the shop,
// consulting the cache first.
func (r *ItemIDResolver) Resolve(ctx context.Context, shopID string, creds Credentials, variantID string) (string, error) {
	var key string
	if r.cache != nil {
		key = r.cache.ItemIDKey(shopID, variantID)
		if cached, err := r.cache.Get(ctx, key); err == nil && cached != "" {
			return cached, nil
		}
	}

	itemID, err := r.lookup.GetInventoryItemID(ctx, creds, variantID)
	if err != nil {
		return "", fmt.Errorf("resolve inventory item for variant %s: %w", variantID, err)
	}

	if r.cache != nil {
		// Best effort; the lookup result is still valid without it.
		_ = r.cache.Set(ctx, key, itemID, r.ttl)
	}
	return itemID, nil
}
