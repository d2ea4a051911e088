package audit

import (
	"context"

	"go.uber.org/zap"

	"vivwendy/internal/domain/account"
)

// Feed records every lifecycle event and forwards it to live admins.
// A failed write is logged and does not stop the broadcast.
type Feed struct {
	store *Store
	hub   *Hub
	log   *zap.Logger
}

func NewFeed(store *Store, hub *Hub, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{store: store, hub: hub, log: log}
}

func (f *Feed) Publish(ctx context.Context, e account.Event) {
	if f.store != nil {
		if err := f.store.Append(ctx, e); err != nil {
			f.log.Warn("audit: persist event", zap.String("type", string(e.Type)), zap.Error(err))
		}
	}
	if f.hub != nil {
		f.hub.Publish(ctx, e)
	}
}
