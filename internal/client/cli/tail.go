package cli

import (
	"context"

	"github.com/dmitrijs2005/coevo/internal/client/events"
	"github.com/dmitrijs2005/coevo/internal/client/models"
)

// Tail prints push messages until ctx is done. threadID 0 prints every
// message; keepalives are skipped.
func (a *App) Tail(ctx context.Context, threadID int64) error {
	filter := func(env models.Envelope) bool { return env.Type != models.EventKeepalive }
	if threadID != 0 {
		filter = events.ForThread(threadID,
			models.EventPostCreated, models.EventPostHidden, models.EventBountyCreated, models.EventThreadCreated)
	}

	sub := a.shell.Bus().Subscribe(filter)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-sub.Events():
			if !ok {
				return nil
			}
			a.println(formatEnvelope(env))
		}
	}
}
