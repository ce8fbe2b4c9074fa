package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	stan "github.com/nats-io/stan.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/nft-listing-service/internal/config"
	"github.com/example/nft-listing-service/internal/domain"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Fatal().Err(err).Msg("publish")
	}
}

func newRootCmd(logger zerolog.Logger) *cobra.Command {
	v := config.New()
	return &cobra.Command{
		Use:   "listing-publisher",
		Short: "Read one listing command as JSON from stdin and publish it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, "")
			if err != nil {
				return err
			}
			b, err := readCommand(cmd.InOrStdin())
			if err != nil {
				return err
			}
			sc, err := stan.Connect(cfg.NATS.ClusterID, "listing-publisher-"+uuid.NewString(), stan.NatsURL(cfg.NATS.URL))
			if err != nil {
				return fmt.Errorf("stan connect: %w", err)
			}
			defer sc.Close()
			if err := sc.Publish(cfg.NATS.CommandSubject, b); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			logger.Info().Int("bytes", len(b)).Str("subject", cfg.NATS.CommandSubject).Msg("published")
			return nil
		},
	}
}

// readCommand проверяет команду и присваивает ей id, если он не задан.
func readCommand(r io.Reader) ([]byte, error) {
	var c domain.Command
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("read json from stdin: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("command: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return json.Marshal(c)
}
