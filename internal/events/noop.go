package events

import (
	"context"

	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
)

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

var _ interfaces.EventPublisher = NoopPublisher{}
