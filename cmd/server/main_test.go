package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/nft-listing-service/internal/config"
	"github.com/example/nft-listing-service/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	cfg.Metrics.Enabled = false
	cfg.Market.DevMode = true
	return cfg
}

func TestNewAppServesListings(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	key := domain.AssetKey{CollectionID: "land", TokenID: "1"}
	app.Registry.SetOwner(key, "seller")
	require.NoError(t, app.Registry.Approve("seller", key, "market"))

	req := httptest.NewRequest(http.MethodPost, "/api/listings/land/1", strings.NewReader(`{"price":100}`))
	req.Header.Set("X-Account-ID", "seller")
	w := httptest.NewRecorder()
	app.Server.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, app.Market.CheckListed(key))

	// dev seeding is mounted
	req = httptest.NewRequest(http.MethodPost, "/api/dev/balances", strings.NewReader(`{"account":"buyer","amount":10}`))
	w = httptest.NewRecorder()
	app.Server.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint64(10), app.Ledger.BalanceOf("buyer"))

	// the listing above is visible in the dev event journal
	req = httptest.NewRequest(http.MethodGet, "/api/dev/events", nil)
	w = httptest.NewRecorder()
	app.Server.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"kind":"ItemListed"`)
}

func TestNewAppLevelDBRecovery(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendLevelDB
	cfg.Store.Dir = t.TempDir()

	key := domain.AssetKey{CollectionID: "land", TokenID: "9"}
	app, err := NewApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	app.Registry.SetOwner(key, "seller")
	app.Registry.SetApprovalForAll("seller", "market", true)
	require.NoError(t, app.Market.ListItem(ctx, "seller", key, 42))
	app.Close()

	app, err = NewApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()
	l, ok := app.Market.GetListing(key)
	require.True(t, ok)
	require.Equal(t, domain.Listing{Seller: "seller", Price: 42}, l)
}

func TestRootCmdFlagsOverrideConfig(t *testing.T) {
	v := config.New()
	cmd := newRootCmd(v)
	require.NoError(t, cmd.Flags().Parse([]string{"--http-addr", ":7070", "--store", "leveldb", "--dev"}))

	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTP.Addr)
	require.Equal(t, config.BackendLevelDB, cfg.Store.Backend)
	require.True(t, cfg.Market.DevMode)
}
