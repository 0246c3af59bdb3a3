package blobstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blobstore_cache_hits_total",
		Help: "Ciphertext reads served from the in-process cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blobstore_cache_misses_total",
		Help: "Ciphertext reads that went to the backing store.",
	})
)

// CachedStore keeps recently read ciphertexts in an LRU. Refs address immutable content,
// so entries never go stale; Delete evicts.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, []byte]
}

// NewCachedStore returns inner unchanged when size is not positive.
func NewCachedStore(inner Store, size int) (Store, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (c *CachedStore) Put(ctx context.Context, blob []byte) (string, error) {
	return c.inner.Put(ctx, blob)
}

// Get returns a slice shared with the cache; callers must not modify it.
func (c *CachedStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if blob, ok := c.cache.Get(ref); ok {
		cacheHitsTotal.Inc()
		return blob, nil
	}
	cacheMissesTotal.Inc()

	blob, err := c.inner.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.cache.Add(ref, blob)
	return blob, nil
}

func (c *CachedStore) Delete(ctx context.Context, ref string) error {
	c.cache.Remove(ref)
	return c.inner.Delete(ctx, ref)
}
