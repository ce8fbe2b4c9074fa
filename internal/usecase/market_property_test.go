package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
	"pgregory.net/rapid"

	"github.com/example/nft-listing-service/internal/adapter/cache"
	"github.com/example/nft-listing-service/internal/adapter/events"
	"github.com/example/nft-listing-service/internal/adapter/ledger"
	"github.com/example/nft-listing-service/internal/adapter/registry"
	"github.com/example/nft-listing-service/internal/adapter/repo"
	"github.com/example/nft-listing-service/internal/domain"
)

// marketModel is the reference state the engine is checked against.
type marketModel struct {
	listings map[domain.AssetKey]domain.Listing
	owners   map[domain.AssetKey]domain.AccountID
	approved map[domain.AssetKey]bool
	balances map[domain.AccountID]uint64
}

func (mm *marketModel) list(acct domain.AccountID, key domain.AssetKey, price uint64) error {
	switch {
	case mm.listed(key):
		return domain.ErrAlreadyListed
	case mm.owners[key] != acct:
		return domain.ErrNotOwner
	case price == 0:
		return domain.ErrInvalidPrice
	case !mm.approved[key]:
		return domain.ErrNotApproved
	}
	mm.listings[key] = domain.Listing{Seller: acct, Price: price}
	return nil
}

func (mm *marketModel) update(acct domain.AccountID, key domain.AssetKey, price uint64) error {
	l, ok := mm.listings[key]
	switch {
	case !ok:
		return domain.ErrNotListed
	case l.Seller != acct:
		return domain.ErrNotSeller
	case price == 0:
		return domain.ErrInvalidPrice
	}
	l.Price = price
	mm.listings[key] = l
	return nil
}

func (mm *marketModel) cancel(acct domain.AccountID, key domain.AssetKey) error {
	l, ok := mm.listings[key]
	switch {
	case !ok:
		return domain.ErrNotListed
	case l.Seller != acct:
		return domain.ErrNotSeller
	}
	delete(mm.listings, key)
	return nil
}

func (mm *marketModel) purchase(acct domain.AccountID, key domain.AssetKey, payment uint64) error {
	l, ok := mm.listings[key]
	switch {
	case !ok:
		return domain.ErrNotListed
	case payment < l.Price:
		return domain.ErrInsufficientPayment
	case mm.owners[key] != l.Seller:
		return domain.ErrNotOwner
	case !mm.approved[key]:
		return domain.ErrNotApproved
	case mm.balances[acct] < l.Price:
		return domain.ErrCollaboratorFailure
	}
	mm.balances[acct] -= l.Price
	mm.balances[l.Seller] += l.Price
	mm.owners[key] = acct
	mm.approved[key] = false
	delete(mm.listings, key)
	return nil
}

func (mm *marketModel) listed(key domain.AssetKey) bool {
	_, ok := mm.listings[key]
	return ok
}

func TestProperty_MarketMatchesModel(t *testing.T) {
	accounts := []domain.AccountID{"a0", "a1", "a2"}
	keys := []domain.AssetKey{
		{CollectionID: "land", TokenID: "0"},
		{CollectionID: "land", TokenID: "1"},
		{CollectionID: "art", TokenID: "0"},
	}

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		db := repo.NewKVListingRepo(dbm.NewMemDB())
		reg := registry.NewMemoryRegistry()
		led := ledger.NewMemoryLedger()
		rec := events.NewRecorder()
		m := NewMarket(MarketConfig{Operator: operator}, db, cache.NewMemoryListingCache(), reg, led, WithPublisher(rec))

		mm := &marketModel{
			listings: make(map[domain.AssetKey]domain.Listing),
			owners:   make(map[domain.AssetKey]domain.AccountID),
			approved: make(map[domain.AssetKey]bool),
			balances: make(map[domain.AccountID]uint64),
		}
		for i, key := range keys {
			owner := accounts[i%len(accounts)]
			reg.SetOwner(key, owner)
			mm.owners[key] = owner
		}
		for _, a := range accounts {
			bal := rapid.Uint64Range(0, 300).Draw(t, "balance")
			require.NoError(t, led.Credit(a, bal))
			mm.balances[a] = bal
		}

		successes := 0
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			acct := rapid.SampledFrom(accounts).Draw(t, "account")
			key := rapid.SampledFrom(keys).Draw(t, "key")
			amount := rapid.Uint64Range(0, 120).Draw(t, "amount")

			var got, want error
			switch op := rapid.IntRange(0, 4).Draw(t, "op"); op {
			case 0:
				got = m.ListItem(ctx, acct, key, amount)
				want = mm.list(acct, key, amount)
			case 1:
				got = m.UpdateListing(ctx, acct, key, amount)
				want = mm.update(acct, key, amount)
			case 2:
				got = m.CancelListing(ctx, acct, key)
				want = mm.cancel(acct, key)
			case 3:
				got = m.Purchase(ctx, acct, key, amount)
				want = mm.purchase(acct, key, amount)
			case 4:
				// the current owner approves the market again
				owner := mm.owners[key]
				require.NoError(t, reg.Approve(owner, key, operator))
				mm.approved[key] = true
				continue
			}

			if want == nil {
				require.NoError(t, got, "step %d", i)
				successes++
			} else {
				require.ErrorIs(t, got, want, "step %d", i)
			}

			for _, k := range keys {
				l, ok := m.GetListing(k)
				ml, mok := mm.listings[k]
				require.Equal(t, mok, ok, "listed %s", k)
				require.Equal(t, mok, m.CheckListed(k))
				if ok {
					require.Equal(t, ml, l, "listing %s", k)
				}
				owner, err := reg.OwnerOf(ctx, k)
				require.NoError(t, err)
				require.Equal(t, mm.owners[k], owner)
			}
			for _, a := range accounts {
				require.Equal(t, mm.balances[a], led.BalanceOf(a), fmt.Sprintf("balance %s", a))
			}
		}

		persisted := make(map[domain.AssetKey]domain.Listing)
		require.NoError(t, db.LoadAll(ctx, func(key domain.AssetKey, l domain.Listing) error {
			persisted[key] = l
			return nil
		}))
		require.Equal(t, mm.listings, persisted)
		require.Len(t, rec.Events(), successes)
		require.Equal(t, uint64(successes), m.Seq())
	})
}
