package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgredis "github.com/angelmondragon/stockbridge-backend/pkg/redis"
)

type fakeLookup struct {
	itemIDs map[string]string
	calls   int
	err     error
}

func (f *fakeLookup) GetInventoryItemID(_ context.Context, _ Credentials, variantID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.itemIDs[variantID], nil
}

type fakeCache struct {
	values map[string]string
	getErr error
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return value, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeCache) ItemIDKey(shopID, variantID string) string {
	return "sb:item_id:" + shopID + ":" + variantID
}

func TestResolverRequiresLookup(t *testing.T) {
	if _, err := NewItemIDResolver(nil, nil, time.Hour); err == nil {
		t.Fatal("expected error without lookup")
	}
}

func TestResolveCachesLookups(t *testing.T) {
	lookup := &fakeLookup{itemIDs: map[string]string{"v1": "item-1"}}
	cache := &fakeCache{values: map[string]string{}}
	resolver, err := NewItemIDResolver(lookup, cache, time.Hour)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	for i := 0; i < 3; i++ {
		itemID, err := resolver.Resolve(context.Background(), "shop-1", testCredentials(), "v1")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if itemID != "item-1" {
			t.Fatalf("item id %q, want item-1", itemID)
		}
	}

	if lookup.calls != 1 {
		t.Fatalf("lookup called %d times, want 1", lookup.calls)
	}
}

func TestResolveSurvivesCacheErrors(t *testing.T) {
	lookup := &fakeLookup{itemIDs: map[string]string{"v1": "item-1"}}
	cache := &fakeCache{values: map[string]string{}, getErr: errors.New("redis down")}
	resolver, err := NewItemIDResolver(lookup, cache, time.Hour)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	itemID, err := resolver.Resolve(context.Background(), "shop-1", testCredentials(), "v1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if itemID != "item-1" {
		t.Fatalf("item id %q, want item-1", itemID)
	}
}

func TestResolveWithoutCache(t *testing.T) {
	lookup := &fakeLookup{itemIDs: map[string]string{"v1": "item-1"}}
	resolver, err := NewItemIDResolver(lookup, nil, 0)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := resolver.Resolve(context.Background(), "shop-1", testCredentials(), "v1"); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if lookup.calls != 2 {
		t.Fatalf("lookup called %d times, want 2", lookup.calls)
	}
}

func TestResolvePropagatesLookupError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("boom")}
	resolver, err := NewItemIDResolver(lookup, nil, time.Hour)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), "shop-1", testCredentials(), "v1"); err == nil {
		t.Fatal("expected error")
	}
}
