package notifications

import (
	"context"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

// Repository stores one notification state snapshot.
type Repository interface {
	// Save replaces the stored snapshot. recent is newest first.
	Save(ctx context.Context, unread int, recent []models.Notification) error

	// Load returns the stored snapshot; ok is false if none was saved.
	Load(ctx context.Context) (unread int, recent []models.Notification, ok bool, err error)
}
