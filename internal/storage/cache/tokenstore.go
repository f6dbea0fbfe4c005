// Package cache adds an optional Redis read-aside layer in front of the
// device-token lookup.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-push-dispatch-service/pkg/dispatch"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedTokenStore is a Decorator that adds Read-Aside caching to any
// TokenStore. Only positive lookups are cached: a recipient who registers
// a device must be reachable on the very next dispatch, so misses always
// go back to the real store.
type CachedTokenStore struct {
	realStore dispatch.TokenStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedTokenStore(realStore dispatch.TokenStore, cache CacheClient, ttl time.Duration) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedTokenStore) DeviceToken(ctx context.Context, profileID string) (string, bool, error) {
	key := s.cacheKey(profileID)

	// 1. Try Cache
	var cached string
	if err := s.cache.Get(ctx, key, &cached); err == nil && cached != "" {
		return cached, true, nil
	}

	// 2. Fallback to Real Store
	token, found, err := s.realStore.DeviceToken(ctx, profileID)
	if err != nil {
		return "", false, err
	}

	// 3. Populate Cache (Fire and Forget)
	// Caching is an optimization, not a transaction: if Redis is down we
	// just serve from the store.
	if found {
		_ = s.cache.Set(ctx, key, token, s.ttl)
	}

	return token, found, nil
}

func (s *CachedTokenStore) cacheKey(profileID string) string {
	return fmt.Sprintf("dispatch:token:%s", profileID)
}
