package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/nft-listing-service/internal/config"
	"github.com/example/nft-listing-service/internal/logging"
)

func main() {
	if err := newRootCmd(config.New()).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:          "listing-server",
		Short:        "NFT listing registry service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	cmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	cmd.Flags().String("store", config.BackendMemory, "listing store backend: memory, leveldb or postgres")
	cmd.Flags().Bool("dev", false, "enable in-memory registry and ledger seeding endpoints")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup("http-addr"))
	_ = v.BindPFlag("store.backend", cmd.Flags().Lookup("store"))
	_ = v.BindPFlag("market.dev_mode", cmd.Flags().Lookup("dev"))
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup")
		return err
	}
	defer app.Close()

	if err := app.Subscribe(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("stan subscribe")
		return err
	}

	srv := app.HTTPServer(cfg.HTTP.Addr)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Backend).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("http")
		return err
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
