// Package bounties caches the last fetched bounty list per scope in the
// local cache database.
package bounties

import (
	"context"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

// Repository stores bounty lists keyed by scope name ("global", "thread:42").
type Repository interface {
	Save(ctx context.Context, scope string, list []models.Bounty) error
	Load(ctx context.Context, scope string) ([]models.Bounty, bool, error)
}
