// Package registry содержит in-memory реестр владения активами в семантике ERC-721:
// владелец токена, одобренный адрес на токен и операторы на все токены владельца.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/nft-listing-service/internal/domain"
)

var (
	ErrUnknownAsset  = errors.New("registry: unknown asset")
	ErrWrongOwner    = errors.New("registry: from is not the owner")
	ErrNotAuthorized = errors.New("registry: caller is not owner nor approved")
)

type MemoryRegistry struct {
	mu        sync.RWMutex
	owners    map[domain.AssetKey]domain.AccountID
	approved  map[domain.AssetKey]domain.AccountID
	operators map[domain.AccountID]map[domain.AccountID]bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		owners:    make(map[domain.AssetKey]domain.AccountID),
		approved:  make(map[domain.AssetKey]domain.AccountID),
		operators: make(map[domain.AccountID]map[domain.AccountID]bool),
	}
}

// SetOwner записывает владельца актива (аналог mint без политики выпуска).
func (r *MemoryRegistry) SetOwner(key domain.AssetKey, owner domain.AccountID) {
	r.mu.Lock()
	r.owners[key] = owner
	delete(r.approved, key)
	r.mu.Unlock()
}

// Approve одобряет operator для одного токена; вызывать может только владелец или его оператор.
func (r *MemoryRegistry) Approve(caller domain.AccountID, key domain.AssetKey, operator domain.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, key)
	}
	if caller != owner && !r.operators[owner][caller] {
		return ErrNotAuthorized
	}
	r.approved[key] = operator
	return nil
}

// SetApprovalForAll включает или снимает оператора для всех токенов owner.
func (r *MemoryRegistry) SetApprovalForAll(owner, operator domain.AccountID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := r.operators[owner]
	if ops == nil {
		ops = make(map[domain.AccountID]bool)
		r.operators[owner] = ops
	}
	if ok {
		ops[operator] = true
	} else {
		delete(ops, operator)
	}
}

func (r *MemoryRegistry) OwnerOf(_ context.Context, key domain.AssetKey) (domain.AccountID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, key)
	}
	return owner, nil
}

func (r *MemoryRegistry) IsApprovedForAsset(_ context.Context, key domain.AssetKey, operator domain.AccountID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAsset, key)
	}
	return r.approved[key] == operator || r.operators[owner][operator], nil
}

// TransferFrom переводит актив; одобрение на токен сбрасывается, как в ERC-721.
func (r *MemoryRegistry) TransferFrom(_ context.Context, from, to domain.AccountID, key domain.AssetKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, key)
	}
	if owner != from {
		return ErrWrongOwner
	}
	r.owners[key] = to
	delete(r.approved, key)
	return nil
}

var _ domain.AssetRegistry = (*MemoryRegistry)(nil)
