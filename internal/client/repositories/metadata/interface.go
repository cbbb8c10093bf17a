// Package metadata is a small key/value store in the local cache database.
// It holds the session token and assorted last-known-good snapshots.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// Well-known keys.
const (
	KeyAccessToken        = "session.access_token"
	KeyWalletSnapshot     = "wallet.snapshot"
	KeyNotificationUnread = "notifications.unread"
)

// BountiesKey marks that the bounty list for scope has been cached.
func BountiesKey(scope string) string {
	return "bounties." + scope + ".saved"
}
