package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/nft-listing-service/internal/domain"
)

const (
	OpListItem      = "listItem"
	OpUpdateListing = "updateListing"
	OpCancelListing = "cancelListing"
	OpPurchase      = "purchase"
)

// MarketConfig: политика движка.
type MarketConfig struct {
	// Operator: идентичность движка в реестре; продавец должен одобрить её на перевод актива.
	Operator domain.AccountID
	// AllowZeroPrice разрешает бесплатные листинги.
	AllowZeroPrice bool
	// MaxPrice ограничивает цену сверху; 0: без ограничения.
	MaxPrice uint64
}

// Ошибки отката покупки; приходят в Cause вместе с исходным отказом участника.
var (
	ErrRefundFailed = errors.New("refund to buyer failed")
	ErrListingLost  = errors.New("listing not restored")
)

type inFlightKey struct{}

// Market: движок листингов. Все изменяющие операции выполняются строго по одной
// под общим мьютексом; чтения обслуживаются из кэша и не берут мьютекс.
//
// Контекст, переданный реестру, леджеру и публикатору, помечен движком: повторный
// вызов изменяющей операции с этим контекстом отклоняется с ErrReentrant.
// Участники, которые вызывают движок обратно, обязаны передавать полученный контекст:
// вызов с новым контекстом из той же горутины навсегда блокируется на мьютексе.
type Market struct {
	cfg       MarketConfig
	repo      domain.ListingRepository
	cache     domain.ListingCache
	registry  domain.AssetRegistry
	ledger    domain.PaymentLedger
	publisher domain.EventPublisher
	logger    zerolog.Logger
	metrics   *Metrics
	now       func() time.Time

	mtx sync.Mutex
	seq atomic.Uint64
}

type MarketOption func(*Market)

func WithPublisher(p domain.EventPublisher) MarketOption {
	return func(m *Market) { m.publisher = p }
}

func WithLogger(l zerolog.Logger) MarketOption {
	return func(m *Market) { m.logger = l }
}

func WithMetrics(mt *Metrics) MarketOption {
	return func(m *Market) { m.metrics = mt }
}

func WithClock(now func() time.Time) MarketOption {
	return func(m *Market) { m.now = now }
}

func NewMarket(
	cfg MarketConfig,
	repo domain.ListingRepository,
	cache domain.ListingCache,
	registry domain.AssetRegistry,
	ledger domain.PaymentLedger,
	opts ...MarketOption,
) *Market {
	m := &Market{
		cfg:      cfg,
		repo:     repo,
		cache:    cache,
		registry: registry,
		ledger:   ledger,
		logger:   zerolog.Nop(),
		metrics:  NopMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load переносит сохранённые листинги в кэш. Вызывается до начала обслуживания.
func (m *Market) Load(ctx context.Context) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	n, err := LoadCache{Repo: m.repo, Cache: m.cache}.Execute(ctx)
	if err != nil {
		return err
	}
	m.metrics.Listings.Set(float64(n))
	m.logger.Info().Int("listings", n).Msg("listings loaded")
	return nil
}

// enter сериализует изменяющую операцию и помечает контекст для внешних вызовов.
func (m *Market) enter(ctx context.Context, op string, key domain.AssetKey) (context.Context, func(), error) {
	if owner, _ := ctx.Value(inFlightKey{}).(*Market); owner == m {
		return nil, nil, m.reject(op, key, domain.ErrReentrant, nil)
	}
	if err := key.Validate(); err != nil {
		return nil, nil, m.reject(op, key, err, nil)
	}
	m.mtx.Lock()
	return context.WithValue(ctx, inFlightKey{}, m), m.mtx.Unlock, nil
}

func (m *Market) reject(op string, key domain.AssetKey, reason, cause error) error {
	outcome := domain.Code(reason)
	if outcome == "" {
		outcome = "invalid"
	}
	m.metrics.Operations.With("op", op, "outcome", outcome).Add(1)
	ev := m.logger.Debug()
	if cause != nil {
		ev = m.logger.Warn().AnErr("cause", cause)
	}
	ev.Str("op", op).
		Str("collection", key.CollectionID).
		Str("token", key.TokenID).
		Str("reason", outcome).
		Msg("operation rejected")
	return &domain.ListingError{Op: op, Key: key, Err: reason, Cause: cause}
}

func (m *Market) checkPrice(price uint64) error {
	if price == 0 && !m.cfg.AllowZeroPrice {
		return domain.ErrInvalidPrice
	}
	if m.cfg.MaxPrice != 0 && price > m.cfg.MaxPrice {
		return domain.ErrInvalidPrice
	}
	return nil
}

// emit присваивает номер и публикует уведомление. Вызывается под мьютексом,
// поэтому порядок номеров совпадает с порядком переходов.
func (m *Market) emit(ctx context.Context, op string, e domain.Event) {
	e.Seq = m.seq.Add(1)
	e.At = m.now()
	m.metrics.Operations.With("op", op, "outcome", "ok").Add(1)
	m.logger.Info().
		Str("op", op).
		Str("collection", e.CollectionID).
		Str("token", e.TokenID).
		Str("seller", string(e.Seller)).
		Uint64("price", e.Price).
		Uint64("seq", e.Seq).
		Msg("listing transition")
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.metrics.PublishFailures.Add(1)
		m.logger.Error().Err(err).Uint64("seq", e.Seq).Str("kind", string(e.Kind)).Msg("publish event")
	}
}

// ListItem выставляет актив на продажу от имени seller (он же вызывающий).
func (m *Market) ListItem(ctx context.Context, seller domain.AccountID, key domain.AssetKey, price uint64) error {
	ctx, done, err := m.enter(ctx, OpListItem, key)
	if err != nil {
		return err
	}
	defer done()

	if _, ok := m.cache.Get(key); ok {
		return m.reject(OpListItem, key, domain.ErrAlreadyListed, nil)
	}
	owner, err := m.registry.OwnerOf(ctx, key)
	if err != nil {
		return m.reject(OpListItem, key, domain.ErrCollaboratorFailure, err)
	}
	if owner != seller {
		return m.reject(OpListItem, key, domain.ErrNotOwner, nil)
	}
	if err := m.checkPrice(price); err != nil {
		return m.reject(OpListItem, key, err, nil)
	}
	approved, err := m.registry.IsApprovedForAsset(ctx, key, m.cfg.Operator)
	if err != nil {
		return m.reject(OpListItem, key, domain.ErrCollaboratorFailure, err)
	}
	if !approved {
		return m.reject(OpListItem, key, domain.ErrNotApproved, nil)
	}

	l := domain.Listing{Seller: seller, Price: price}
	if err := m.repo.Insert(ctx, key, l); err != nil {
		if errors.Is(err, domain.ErrAlreadyListed) {
			return m.reject(OpListItem, key, domain.ErrAlreadyListed, nil)
		}
		return fmt.Errorf("%s %s: persist: %w", OpListItem, key, err)
	}
	m.cache.Set(key, l)
	m.metrics.Listings.Add(1)
	m.emit(ctx, OpListItem, domain.NewItemListed(seller, key, price))
	return nil
}

// sellerListing возвращает листинг, если он есть и принадлежит caller.
// Отсутствие листинга проверяется раньше личности вызывающего.
func (m *Market) sellerListing(op string, caller domain.AccountID, key domain.AssetKey) (domain.Listing, error) {
	l, ok := m.cache.Get(key)
	if !ok {
		return l, m.reject(op, key, domain.ErrNotListed, nil)
	}
	if l.Seller != caller {
		return l, m.reject(op, key, domain.ErrNotSeller, nil)
	}
	return l, nil
}

// UpdateListing меняет только цену; продавец прежний.
func (m *Market) UpdateListing(ctx context.Context, caller domain.AccountID, key domain.AssetKey, newPrice uint64) error {
	ctx, done, err := m.enter(ctx, OpUpdateListing, key)
	if err != nil {
		return err
	}
	defer done()

	l, err := m.sellerListing(OpUpdateListing, caller, key)
	if err != nil {
		return err
	}
	if err := m.checkPrice(newPrice); err != nil {
		return m.reject(OpUpdateListing, key, err, nil)
	}

	l.Price = newPrice
	if err := m.repo.Update(ctx, key, l); err != nil {
		return fmt.Errorf("%s %s: persist: %w", OpUpdateListing, key, err)
	}
	m.cache.Set(key, l)
	m.emit(ctx, OpUpdateListing, domain.NewItemListed(l.Seller, key, newPrice))
	return nil
}

// CancelListing снимает листинг.
func (m *Market) CancelListing(ctx context.Context, caller domain.AccountID, key domain.AssetKey) error {
	ctx, done, err := m.enter(ctx, OpCancelListing, key)
	if err != nil {
		return err
	}
	defer done()

	l, err := m.sellerListing(OpCancelListing, caller, key)
	if err != nil {
		return err
	}
	if err := m.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("%s %s: persist: %w", OpCancelListing, key, err)
	}
	m.cache.Delete(key)
	m.metrics.Listings.Add(-1)
	m.emit(ctx, OpCancelListing, domain.NewItemCanceled(l.Seller, key))
	return nil
}

// Purchase покупает актив по цене листинга. Листинг удаляется до обращения к леджеру
// и реестру; при отказе любого из них листинг восстанавливается, а уже выполненный
// платёж возвращается покупателю.
func (m *Market) Purchase(ctx context.Context, buyer domain.AccountID, key domain.AssetKey, payment uint64) error {
	ctx, done, err := m.enter(ctx, OpPurchase, key)
	if err != nil {
		return err
	}
	defer done()

	l, ok := m.cache.Get(key)
	if !ok {
		return m.reject(OpPurchase, key, domain.ErrNotListed, nil)
	}
	if payment < l.Price {
		return m.reject(OpPurchase, key, domain.ErrInsufficientPayment, nil)
	}
	owner, err := m.registry.OwnerOf(ctx, key)
	if err != nil {
		return m.reject(OpPurchase, key, domain.ErrCollaboratorFailure, err)
	}
	if owner != l.Seller {
		return m.reject(OpPurchase, key, domain.ErrNotOwner, nil)
	}
	approved, err := m.registry.IsApprovedForAsset(ctx, key, m.cfg.Operator)
	if err != nil {
		return m.reject(OpPurchase, key, domain.ErrCollaboratorFailure, err)
	}
	if !approved {
		return m.reject(OpPurchase, key, domain.ErrNotApproved, nil)
	}

	if err := m.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("%s %s: persist: %w", OpPurchase, key, err)
	}
	m.cache.Delete(key)

	if err := m.ledger.Transfer(ctx, buyer, l.Seller, l.Price); err != nil {
		return m.reject(OpPurchase, key, domain.ErrCollaboratorFailure, errors.Join(err, m.restore(ctx, key, l)))
	}
	if err := m.registry.TransferFrom(ctx, l.Seller, buyer, key); err != nil {
		var refundErr error
		if rerr := m.ledger.Transfer(ctx, l.Seller, buyer, l.Price); rerr != nil {
			m.logger.Error().Err(rerr).
				Str("collection", key.CollectionID).
				Str("token", key.TokenID).
				Str("buyer", string(buyer)).
				Uint64("price", l.Price).
				Msg("refund after failed asset transfer")
			refundErr = fmt.Errorf("%w: %w", ErrRefundFailed, rerr)
		}
		return m.reject(OpPurchase, key, domain.ErrCollaboratorFailure, errors.Join(err, refundErr, m.restore(ctx, key, l)))
	}

	m.metrics.Listings.Add(-1)
	m.emit(ctx, OpPurchase, domain.NewItemBought(buyer, l.Seller, key, l.Price))
	return nil
}

// restore возвращает листинг после отката покупки. Если хранилище не приняло запись,
// листинг не возвращается и в кэш: кэш не должен расходиться с хранилищем.
func (m *Market) restore(ctx context.Context, key domain.AssetKey, l domain.Listing) error {
	m.metrics.Rollbacks.Add(1)
	if err := m.repo.Insert(context.WithoutCancel(ctx), key, l); err != nil {
		m.metrics.Listings.Add(-1)
		m.logger.Error().Err(err).
			Str("collection", key.CollectionID).
			Str("token", key.TokenID).
			Str("seller", string(l.Seller)).
			Uint64("price", l.Price).
			Msg("listing lost on restore after failed purchase")
		return fmt.Errorf("%w: %w", ErrListingLost, err)
	}
	m.cache.Set(key, l)
	return nil
}

// GetListing возвращает текущий листинг или ok=false.
func (m *Market) GetListing(key domain.AssetKey) (domain.Listing, bool) {
	return m.cache.Get(key)
}

// CheckListed сообщает, выставлен ли актив.
func (m *Market) CheckListed(key domain.AssetKey) bool {
	_, ok := m.cache.Get(key)
	return ok
}

// Listings перечисляет активные листинги по фильтру.
func (m *Market) Listings(f domain.ListingFilter) []domain.ListedItem {
	return m.cache.List(f)
}

// Seq возвращает номер последнего выпущенного уведомления.
func (m *Market) Seq() uint64 {
	return m.seq.Load()
}
