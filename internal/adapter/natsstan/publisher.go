package natsstan

import (
	"context"
	"encoding/json"
	"fmt"

	stan "github.com/nats-io/stan.go"

	"github.com/example/nft-listing-service/internal/domain"
)

// Conn: часть stan.Conn, нужная публикатору.
type Conn interface {
	Publish(subject string, data []byte) error
	Close() error
}

// Publisher публикует уведомления маркетплейса в NATS Streaming.
// Публикация синхронная: вызов ждёт подтверждения сервера, что сохраняет порядок.
type Publisher struct {
	Conn    Conn
	Subject string
}

// Dial подключается к кластеру и возвращает публикатор.
func Dial(url, clusterID, id, subject string) (*Publisher, error) {
	sc, err := stan.Connect(clusterID, clientID(id, "listing-pub"), stan.NatsURL(url))
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return &Publisher{Conn: sc, Subject: subject}, nil
}

func (p *Publisher) Publish(_ context.Context, e domain.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.Conn.Publish(p.Subject, b); err != nil {
		return fmt.Errorf("publish %s #%d: %w", e.Kind, e.Seq, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.Conn.Close()
}

var _ domain.EventPublisher = (*Publisher)(nil)
