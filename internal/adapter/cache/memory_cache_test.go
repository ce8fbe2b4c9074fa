package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/nft-listing-service/internal/domain"
)

func TestMemoryListingCache(t *testing.T) {
	c := NewMemoryListingCache()
	key := domain.AssetKey{CollectionID: "land", TokenID: "1"}

	_, ok := c.Get(key)
	require.False(t, ok)

	c.Set(key, domain.Listing{Seller: "alice", Price: 100})
	l, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, domain.Listing{Seller: "alice", Price: 100}, l)

	c.Delete(key)
	_, ok = c.Get(key)
	require.False(t, ok)
	require.Empty(t, c.List(domain.ListingFilter{}))
}

func TestMemoryListingCacheListOrderAndFilter(t *testing.T) {
	c := NewMemoryListingCache()
	c.Set(domain.AssetKey{CollectionID: "land", TokenID: "2"}, domain.Listing{Seller: "bob", Price: 5})
	c.Set(domain.AssetKey{CollectionID: "art", TokenID: "9"}, domain.Listing{Seller: "alice", Price: 7})
	c.Set(domain.AssetKey{CollectionID: "land", TokenID: "1"}, domain.Listing{Seller: "alice", Price: 3})

	all := c.List(domain.ListingFilter{})
	require.Len(t, all, 3)
	require.Equal(t, "art", all[0].CollectionID)
	require.Equal(t, "1", all[1].TokenID)
	require.Equal(t, "2", all[2].TokenID)

	bySeller := c.List(domain.ListingFilter{Seller: "alice"})
	require.Len(t, bySeller, 2)

	byCollection := c.List(domain.ListingFilter{CollectionID: "land", Seller: "bob"})
	require.Len(t, byCollection, 1)
	require.Equal(t, uint64(5), byCollection[0].Price)
}

func BenchmarkCacheGet(b *testing.B) {
	c := NewMemoryListingCache()
	for i := 0; i < 10000; i++ {
		c.Set(domain.AssetKey{CollectionID: "land", TokenID: fmt.Sprint(i)}, domain.Listing{Seller: "s", Price: uint64(i)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(domain.AssetKey{CollectionID: "land", TokenID: fmt.Sprint(i % 10000)})
	}
}
