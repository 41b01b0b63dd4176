package repository

import (
	"context"

	"AlphaChart/internal/domain/models"
	domrepo "AlphaChart/internal/domain/repository"
)

// DefaultRefreshTopic receives one message per applied fetch.
const DefaultRefreshTopic = "series.refreshed"

// messagePublisher is satisfied by *kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaRefreshPublisher announces cache replacements keyed by symbol, so
// events for one symbol stay ordered within a partition.
type KafkaRefreshPublisher struct {
	p     messagePublisher
	topic string
}

func NewKafkaRefreshPublisher(p messagePublisher, topic string) *KafkaRefreshPublisher {
	if topic == "" {
		topic = DefaultRefreshTopic
	}
	return &KafkaRefreshPublisher{p: p, topic: topic}
}

func (k *KafkaRefreshPublisher) PublishRefresh(ctx context.Context, ev models.RefreshEvent) error {
	return k.p.Publish(ctx, k.topic, []byte(ev.Symbol), ev)
}

func (k *KafkaRefreshPublisher) Close() error {
	return k.p.Close()
}

var _ domrepo.RefreshPublisher = (*KafkaRefreshPublisher)(nil)
