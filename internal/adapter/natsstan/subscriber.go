package natsstan

import (
	"context"
	"time"

	"github.com/google/uuid"
	stan "github.com/nats-io/stan.go"
	"github.com/rs/zerolog"

	"github.com/example/nft-listing-service/internal/domain"
)

// Subscriber читает команды листинга из NATS Streaming.
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
	Queue     string
	Logger    zerolog.Logger
}

func clientID(id, prefix string) string {
	if id != "" {
		return id
	}
	return prefix + "-" + uuid.NewString()
}

func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	sc, err := stan.Connect(s.ClusterID, clientID(s.ClientID, "listing-svc"), stan.NatsURL(s.URL))
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()
	queue := s.Queue
	if queue == "" {
		queue = "listing-workers"
	}
	_, err = sc.QueueSubscribe(s.Subject, queue, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handler(hCtx, m.Data); err != nil {
			// не подтверждаем, даём сообщению переотправиться
			s.Logger.Error().Err(err).Uint64("sequence", m.Sequence).Msg("command handler")
			return
		}
		if err := m.Ack(); err != nil {
			s.Logger.Warn().Err(err).Uint64("sequence", m.Sequence).Msg("ack failed")
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(10*time.Second), stan.DeliverAllAvailable())
	return err
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
