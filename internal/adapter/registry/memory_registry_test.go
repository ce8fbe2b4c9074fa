package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/nft-listing-service/internal/domain"
)

func TestMemoryRegistryApprovals(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	key := domain.AssetKey{CollectionID: "land", TokenID: "1"}

	_, err := r.OwnerOf(ctx, key)
	require.ErrorIs(t, err, ErrUnknownAsset)

	r.SetOwner(key, "alice")
	owner, err := r.OwnerOf(ctx, key)
	require.NoError(t, err)
	require.Equal(t, domain.AccountID("alice"), owner)

	ok, err := r.IsApprovedForAsset(ctx, key, "market")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, r.Approve("mallory", key, "market"), ErrNotAuthorized)
	require.NoError(t, r.Approve("alice", key, "market"))
	ok, err = r.IsApprovedForAsset(ctx, key, "market")
	require.NoError(t, err)
	require.True(t, ok)

	// token approval is cleared by a transfer, blanket approval is not token-bound
	require.NoError(t, r.TransferFrom(ctx, "alice", "bob", key))
	ok, err = r.IsApprovedForAsset(ctx, key, "market")
	require.NoError(t, err)
	require.False(t, ok)

	r.SetApprovalForAll("bob", "market", true)
	ok, err = r.IsApprovedForAsset(ctx, key, "market")
	require.NoError(t, err)
	require.True(t, ok)

	r.SetApprovalForAll("bob", "market", false)
	ok, err = r.IsApprovedForAsset(ctx, key, "market")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryRegistryTransferFromWrongOwner(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	key := domain.AssetKey{CollectionID: "land", TokenID: "1"}
	r.SetOwner(key, "alice")

	require.ErrorIs(t, r.TransferFrom(ctx, "bob", "carol", key), ErrWrongOwner)
	owner, err := r.OwnerOf(ctx, key)
	require.NoError(t, err)
	require.Equal(t, domain.AccountID("alice"), owner)
}
