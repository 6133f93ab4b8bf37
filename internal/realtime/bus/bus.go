package bus

import (
	"context"

	"github.com/yungbote/smartboard-backend/internal/realtime"
)

// Bus carries realtime messages to every server replica's hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// localBus delivers straight to one in-process hub.
type localBus struct {
	hub *realtime.SSEHub
}

func NewLocalBus(hub *realtime.SSEHub) Bus {
	return &localBus{hub: hub}
}

func (b *localBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b.hub != nil {
		b.hub.Broadcast(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	return nil
}

func (b *localBus) Close() error { return nil }
