// Package events содержит публикаторы уведомлений: запись в память, в лог и веер на несколько получателей.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/nft-listing-service/internal/domain"
)

// Recorder хранит уведомления в порядке публикации.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events возвращает копию журнала.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Since возвращает уведомления с Seq > seq.
func (r *Recorder) Since(seq uint64) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Last() (domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// LogPublisher пишет уведомления в журнал.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(_ context.Context, e domain.Event) error {
	ev := p.Logger.Info().
		Uint64("seq", e.Seq).
		Str("kind", string(e.Kind)).
		Str("seller", string(e.Seller)).
		Str("collection", e.CollectionID).
		Str("token", e.TokenID)
	if e.Buyer != "" {
		ev = ev.Str("buyer", string(e.Buyer))
	}
	if e.Kind != domain.ItemCanceled {
		ev = ev.Uint64("price", e.Price)
	}
	ev.Msg("market event")
	return nil
}

// Multi публикует в каждый получатель по порядку; ошибки собираются, но не прерывают рассылку.
type Multi []domain.EventPublisher

func (m Multi) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.EventPublisher = (*Recorder)(nil)
	_ domain.EventPublisher = LogPublisher{}
	_ domain.EventPublisher = Multi(nil)
)
