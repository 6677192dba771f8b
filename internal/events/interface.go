// Package events publishes committed chat messages to kafka as a
// best-effort archive feed for downstream consumers (analytics,
// moderation). Delivery failures never block or fail the send path.
package events

import (
	"context"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

type MessageProducer interface {
	ProduceMessage(ctx context.Context, chatID string, msg *domain.Message) error
	Close() error
}
