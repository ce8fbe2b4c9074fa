package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/example/nft-listing-service/internal/domain"
)

// GetListing: получить листинг из кэша по ключу актива.
type GetListing struct {
	Cache domain.ListingCache
}

func (uc GetListing) Execute(key domain.AssetKey) (domain.Listing, bool) {
	return uc.Cache.Get(key)
}

// LoadCache: загрузить все листинги из репозитория в кэш при старте.
type LoadCache struct {
	Repo  domain.ListingRepository
	Cache domain.ListingCache
}

func (uc LoadCache) Execute(ctx context.Context) (int, error) {
	n := 0
	err := uc.Repo.LoadAll(ctx, func(key domain.AssetKey, l domain.Listing) error {
		if key.Validate() != nil {
			// пропускаем битые записи, не прерывая полную загрузку
			return nil
		}
		uc.Cache.Set(key, l)
		n++
		return nil
	})
	return n, err
}

// ExecuteCommand: применить команду к движку.
type ExecuteCommand struct {
	Market *Market
}

func (uc ExecuteCommand) Execute(ctx context.Context, c domain.Command) error {
	if err := c.Validate(); err != nil {
		return err
	}
	key := c.Key()
	switch c.Op {
	case domain.OpList:
		return uc.Market.ListItem(ctx, c.Account, key, c.Price)
	case domain.OpUpdate:
		return uc.Market.UpdateListing(ctx, c.Account, key, c.Price)
	case domain.OpCancel:
		return uc.Market.CancelListing(ctx, c.Account, key)
	case domain.OpPurchase:
		return uc.Market.Purchase(ctx, c.Account, key, c.Payment)
	}
	return domain.ErrValidation
}

// ProcessIncomingCommand: обработать сообщение из очереди команд.
// Отказ по бизнес-правилам окончателен: сообщение подтверждается, отказ пишется в журнал.
// Ошибка возвращается только для сбоев инфраструктуры, чтобы сообщение было доставлено повторно.
type ProcessIncomingCommand struct {
	Exec   ExecuteCommand
	Logger zerolog.Logger
}

func (uc ProcessIncomingCommand) Execute(ctx context.Context, raw []byte) error {
	var c domain.Command
	if err := json.Unmarshal(raw, &c); err != nil {
		uc.Logger.Warn().Err(err).Msg("invalid command message")
		return nil
	}
	err := uc.Exec.Execute(ctx, c)
	if err == nil {
		return nil
	}
	if code := domain.Code(err); code != "" || errors.Is(err, domain.ErrValidation) {
		uc.Logger.Info().
			Str("id", c.ID).
			Str("op", string(c.Op)).
			Str("account", string(c.Account)).
			Str("collection", c.CollectionID).
			Str("token", c.TokenID).
			Str("reason", code).
			Msg("command rejected")
		return nil
	}
	return err
}
