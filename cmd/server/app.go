package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	dbm "github.com/tendermint/tm-db"

	"github.com/example/nft-listing-service/internal/adapter/cache"
	"github.com/example/nft-listing-service/internal/adapter/events"
	"github.com/example/nft-listing-service/internal/adapter/httpapi"
	"github.com/example/nft-listing-service/internal/adapter/ledger"
	"github.com/example/nft-listing-service/internal/adapter/natsstan"
	"github.com/example/nft-listing-service/internal/adapter/registry"
	"github.com/example/nft-listing-service/internal/adapter/repo"
	"github.com/example/nft-listing-service/internal/config"
	"github.com/example/nft-listing-service/internal/domain"
	"github.com/example/nft-listing-service/internal/usecase"
)

// App держит собранные зависимости сервиса.
type App struct {
	Market   *usecase.Market
	Server   *httpapi.Server
	Registry *registry.MemoryRegistry
	Ledger   *ledger.MemoryLedger

	closers []io.Closer
	cleanup []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	for _, fn := range a.cleanup {
		fn()
	}
}

func buildRepo(ctx context.Context, cfg *config.Config, a *App) (domain.ListingRepository, error) {
	switch cfg.Store.Backend {
	case config.BackendLevelDB:
		r, err := repo.OpenKVListingRepo(cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r)
		return r, nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.cleanup = append(a.cleanup, pool.Close)
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("init schema: %w", err)
		}
		return repo.NewPostgresListingRepo(pool), nil
	}
	return repo.NewKVListingRepo(dbm.NewMemDB()), nil
}

// NewApp собирает движок и HTTP-сервер; listings загружаются из хранилища до возврата.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Registry: registry.NewMemoryRegistry(),
		Ledger:   ledger.NewMemoryLedger(),
	}
	listingRepo, err := buildRepo(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics := usecase.NopMetrics()
	if cfg.Metrics.Enabled {
		metrics = usecase.PrometheusMetrics(cfg.Metrics.Namespace)
	}

	publishers := events.Multi{events.LogPublisher{Logger: logger.With().Str("module", "events").Logger()}}
	if cfg.NATS.Enabled {
		pub, err := natsstan.Dial(cfg.NATS.URL, cfg.NATS.ClusterID, eventClientID(cfg.NATS.ClientID), cfg.NATS.EventSubject)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub)
		publishers = append(publishers, pub)
	}

	var recorder *events.Recorder
	if cfg.Market.DevMode {
		recorder = events.NewRecorder()
		publishers = append(publishers, recorder)
	}

	listingCache := cache.NewMemoryListingCache()
	a.Market = usecase.NewMarket(usecase.MarketConfig{
		Operator:       domain.AccountID(cfg.Market.Operator),
		AllowZeroPrice: cfg.Market.AllowZeroPrice,
		MaxPrice:       cfg.Market.MaxPrice,
	}, listingRepo, listingCache, a.Registry, a.Ledger,
		usecase.WithPublisher(publishers),
		usecase.WithLogger(logger.With().Str("module", "market").Logger()),
		usecase.WithMetrics(metrics),
	)
	if err := a.Market.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load cache: %w", err)
	}

	var opts []httpapi.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, httpapi.WithMetricsHandler())
	}
	if cfg.Market.DevMode {
		opts = append(opts, httpapi.WithDevSeeding(a.Registry, a.Ledger), httpapi.WithDevEvents(recorder))
	}
	a.Server = httpapi.NewServer(a.Market, usecase.GetListing{Cache: listingCache},
		logger.With().Str("module", "http").Logger(), opts...)
	return a, nil
}

func eventClientID(id string) string {
	if id == "" {
		return ""
	}
	return id + "-pub"
}

// Subscribe запускает приём команд из NATS, если он включён.
func (a *App) Subscribe(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if !cfg.NATS.Enabled {
		return nil
	}
	sub := &natsstan.Subscriber{
		ClusterID: cfg.NATS.ClusterID,
		ClientID:  cfg.NATS.ClientID,
		URL:       cfg.NATS.URL,
		Subject:   cfg.NATS.CommandSubject,
		Durable:   cfg.NATS.Durable,
		Queue:     cfg.NATS.Queue,
		Logger:    logger.With().Str("module", "nats").Logger(),
	}
	uc := usecase.ProcessIncomingCommand{
		Exec:   usecase.ExecuteCommand{Market: a.Market},
		Logger: logger.With().Str("module", "commands").Logger(),
	}
	return sub.Subscribe(ctx, uc.Execute)
}

func (a *App) HTTPServer(addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: a.Server.Router}
}
