package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, BackendMemory, cfg.Store.Backend)
	require.Equal(t, "market", cfg.Market.Operator)
	require.Equal(t, uint64(math.MaxInt64), cfg.Market.MaxPrice)
	require.False(t, cfg.Market.AllowZeroPrice)
	require.False(t, cfg.NATS.Enabled)
	require.Equal(t, "listing-workers", cfg.NATS.Queue)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LISTING_HTTP_ADDR", ":9090")
	t.Setenv("LISTING_STORE_BACKEND", "leveldb")
	t.Setenv("LISTING_MARKET_ALLOW_ZERO_PRICE", "true")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, BackendLevelDB, cfg.Store.Backend)
	require.True(t, cfg.Market.AllowZeroPrice)
}

func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "listing.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
store:
  backend: postgres
market:
  operator: "0xmarket"
  dev_mode: true
log:
  format: console
`), 0o600))

	cfg, err := Load(New(), file)
	require.NoError(t, err)
	require.Equal(t, BackendPostgres, cfg.Store.Backend)
	require.Equal(t, "0xmarket", cfg.Market.Operator)
	require.True(t, cfg.Market.DevMode)
	require.Equal(t, "console", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Store.Backend = "mongo"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Market.Operator = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Store.Backend = BackendPostgres
	cfg.Market.MaxPrice = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.NATS.Enabled = true
	cfg.NATS.CommandSubject = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Log.Format = "xml"
	require.Error(t, cfg.Validate())
}
