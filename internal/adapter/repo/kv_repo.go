package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/example/nft-listing-service/internal/domain"
)

const listingKeyPrefix = "listing"

// KVListingRepo хранит листинги во встраиваемой KV-базе (goleveldb или memdb).
//
// Ключи кодируются через orderedcode, поэтому итерация идёт по (коллекция, токен).
// Safe for concurrent use by multiple goroutines.
type KVListingRepo struct {
	db  dbm.DB
	mtx sync.Mutex
}

func NewKVListingRepo(db dbm.DB) *KVListingRepo {
	return &KVListingRepo{db: db}
}

// OpenKVListingRepo открывает goleveldb в каталоге dir.
func OpenKVListingRepo(dir string) (*KVListingRepo, error) {
	db, err := dbm.NewDB("listings", dbm.GoLevelDBBackend, dir)
	if err != nil {
		return nil, fmt.Errorf("open listings db: %w", err)
	}
	return NewKVListingRepo(db), nil
}

func (r *KVListingRepo) Close() error {
	return r.db.Close()
}

func listingKey(key domain.AssetKey) ([]byte, error) {
	return orderedcode.Append(nil, listingKeyPrefix, key.CollectionID, key.TokenID)
}

func parseListingKey(bz []byte) (domain.AssetKey, error) {
	var (
		prefix string
		key    domain.AssetKey
	)
	remaining, err := orderedcode.Parse(string(bz), &prefix, &key.CollectionID, &key.TokenID)
	if err != nil {
		return key, fmt.Errorf("failed to parse listing key: %w", err)
	}
	if len(remaining) != 0 {
		return key, fmt.Errorf("unexpected remainder in key: %q", remaining)
	}
	return key, nil
}

// prefixEnd returns the smallest key greater than every key with the given prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func (r *KVListingRepo) Insert(_ context.Context, key domain.AssetKey, l domain.Listing) error {
	k, err := listingKey(key)
	if err != nil {
		return err
	}
	bz, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshalling listing: %w", err)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	has, err := r.db.Has(k)
	if err != nil {
		return err
	}
	if has {
		return domain.ErrAlreadyListed
	}
	return r.db.SetSync(k, bz)
}

func (r *KVListingRepo) Update(_ context.Context, key domain.AssetKey, l domain.Listing) error {
	k, err := listingKey(key)
	if err != nil {
		return err
	}
	bz, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshalling listing: %w", err)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	has, err := r.db.Has(k)
	if err != nil {
		return err
	}
	if !has {
		return domain.ErrNotFound
	}
	return r.db.SetSync(k, bz)
}

func (r *KVListingRepo) Delete(_ context.Context, key domain.AssetKey) error {
	k, err := listingKey(key)
	if err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	has, err := r.db.Has(k)
	if err != nil {
		return err
	}
	if !has {
		return domain.ErrNotFound
	}
	return r.db.DeleteSync(k)
}

func (r *KVListingRepo) LoadAll(ctx context.Context, fn func(key domain.AssetKey, l domain.Listing) error) error {
	start, err := orderedcode.Append(nil, listingKeyPrefix)
	if err != nil {
		return err
	}
	itr, err := r.db.Iterator(start, prefixEnd(start))
	if err != nil {
		return err
	}
	defer itr.Close()

	for ; itr.Valid(); itr.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, err := parseListingKey(itr.Key())
		if err != nil {
			return err
		}
		var l domain.Listing
		if err := json.Unmarshal(itr.Value(), &l); err != nil {
			return fmt.Errorf("unmarshalling listing %s: %w", key, err)
		}
		if err := fn(key, l); err != nil {
			return err
		}
	}
	return itr.Error()
}

var _ domain.ListingRepository = (*KVListingRepo)(nil)
