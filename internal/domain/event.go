package domain

import "time"

// EventKind: тип уведомления о переходе состояния листинга.
type EventKind string

const (
	ItemListed   EventKind = "ItemListed"
	ItemCanceled EventKind = "ItemCanceled"
	ItemBought   EventKind = "ItemBought"
)

// Event: упорядоченная запись-наблюдение. Seq строго возрастает в пределах движка.
// Buyer заполнен только для ItemBought, Price: для ItemListed и ItemBought.
type Event struct {
	Seq          uint64    `json:"seq"`
	Kind         EventKind `json:"kind"`
	Seller       AccountID `json:"seller"`
	Buyer        AccountID `json:"buyer,omitempty"`
	CollectionID string    `json:"collection_id"`
	TokenID      string    `json:"token_id"`
	Price        uint64    `json:"price,omitempty"`
	At           time.Time `json:"at"`
}

func (e Event) Key() AssetKey {
	return AssetKey{CollectionID: e.CollectionID, TokenID: e.TokenID}
}

func NewItemListed(seller AccountID, key AssetKey, price uint64) Event {
	return Event{Kind: ItemListed, Seller: seller, CollectionID: key.CollectionID, TokenID: key.TokenID, Price: price}
}

func NewItemCanceled(seller AccountID, key AssetKey) Event {
	return Event{Kind: ItemCanceled, Seller: seller, CollectionID: key.CollectionID, TokenID: key.TokenID}
}

func NewItemBought(buyer, seller AccountID, key AssetKey, price uint64) Event {
	return Event{Kind: ItemBought, Buyer: buyer, Seller: seller, CollectionID: key.CollectionID, TokenID: key.TokenID, Price: price}
}
