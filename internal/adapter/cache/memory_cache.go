package cache

import (
	"sort"
	"sync"

	"github.com/example/nft-listing-service/internal/domain"
)

type MemoryListingCache struct {
	mu    sync.RWMutex
	store map[domain.AssetKey]domain.Listing
}

func NewMemoryListingCache() *MemoryListingCache {
	return &MemoryListingCache{store: make(map[domain.AssetKey]domain.Listing)}
}

func (c *MemoryListingCache) Get(key domain.AssetKey) (domain.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.store[key]
	return l, ok
}

func (c *MemoryListingCache) Set(key domain.AssetKey, l domain.Listing) {
	c.mu.Lock()
	c.store[key] = l
	c.mu.Unlock()
}

func (c *MemoryListingCache) Delete(key domain.AssetKey) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

// List возвращает подходящие листинги, упорядоченные по коллекции и токену.
func (c *MemoryListingCache) List(f domain.ListingFilter) []domain.ListedItem {
	c.mu.RLock()
	out := make([]domain.ListedItem, 0, len(c.store))
	for k, l := range c.store {
		it := domain.ListedItem{AssetKey: k, Listing: l}
		if f.Match(it) {
			out = append(out, it)
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CollectionID != out[j].CollectionID {
			return out[i].CollectionID < out[j].CollectionID
		}
		return out[i].TokenID < out[j].TokenID
	})
	return out
}

var _ domain.ListingCache = (*MemoryListingCache)(nil)
