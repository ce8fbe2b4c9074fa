package domain

import "fmt"

// AccountID: идентификатор аккаунта (продавца, покупателя, оператора).
type AccountID string

// AssetKey: составной ключ актива: коллекция + токен.
type AssetKey struct {
	CollectionID string `json:"collection_id"`
	TokenID      string `json:"token_id"`
}

func (k AssetKey) String() string {
	return fmt.Sprintf("%s/%s", k.CollectionID, k.TokenID)
}

// Validate проверяет, что обе части ключа заданы.
func (k AssetKey) Validate() error {
	if k.CollectionID == "" || k.TokenID == "" {
		return ErrValidation
	}
	return nil
}

// Listing: активное предложение о продаже. Наличие записи и есть состояние «выставлен».
type Listing struct {
	Seller AccountID `json:"seller"`
	Price  uint64    `json:"price"`
}

// ListedItem: листинг вместе с ключом, для перечисления.
type ListedItem struct {
	AssetKey
	Listing
}

// ListingFilter: фильтр перечисления листингов; пустые поля не ограничивают выборку.
type ListingFilter struct {
	Seller       AccountID
	CollectionID string
}

func (f ListingFilter) Match(it ListedItem) bool {
	if f.Seller != "" && it.Seller != f.Seller {
		return false
	}
	if f.CollectionID != "" && it.CollectionID != f.CollectionID {
		return false
	}
	return true
}
