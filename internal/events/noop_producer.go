package events

import (
	"context"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

// NoopProducer discards messages. Used when kafka is disabled.
type NoopProducer struct{}

func NewNoopProducer() *NoopProducer { return &NoopProducer{} }

func (NoopProducer) ProduceMessage(ctx context.Context, chatID string, msg *domain.Message) error {
	return nil
}

func (NoopProducer) Close() error { return nil }
