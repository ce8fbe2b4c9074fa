package domain

import "context"

// ListingRepository: порт долговременного хранения листингов.
type ListingRepository interface {
	Insert(ctx context.Context, key AssetKey, l Listing) error
	Update(ctx context.Context, key AssetKey, l Listing) error
	Delete(ctx context.Context, key AssetKey) error
	LoadAll(ctx context.Context, fn func(key AssetKey, l Listing) error) error
}

// ListingCache: порт быстрого доступа к листингам (кэш); отсюда обслуживаются чтения.
type ListingCache interface {
	Get(key AssetKey) (Listing, bool)
	Set(key AssetKey, l Listing)
	Delete(key AssetKey)
	List(f ListingFilter) []ListedItem
}

// AssetRegistry: внешний реестр владения активами и разрешений.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, key AssetKey) (AccountID, error)
	// IsApprovedForAsset истинно, если operator одобрен для конкретного токена или для всех токенов владельца.
	IsApprovedForAsset(ctx context.Context, key AssetKey, operator AccountID) (bool, error)
	// TransferFrom обязан атомарно отказать, если from не текущий владелец.
	TransferFrom(ctx context.Context, from, to AccountID, key AssetKey) error
}

// PaymentLedger: внешний леджер платёжной валюты. Transfer атомарен.
type PaymentLedger interface {
	Transfer(ctx context.Context, from, to AccountID, amount uint64) error
}

// EventPublisher: порт публикации уведомлений.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// MessageSubscriber: порт подписчика на входящие команды.
type MessageSubscriber interface {
	// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}
