package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

// Holder is the in-memory view of the current session, backed by a Store.
// It is safe for concurrent use.
type Holder struct {
	mu    sync.RWMutex
	store Store
	ident *Identity
	log   logging.Logger
	now   func() time.Time
}

func NewHolder(store Store, log logging.Logger) *Holder {
	return &Holder{store: store, log: logging.OrNop(log), now: time.Now}
}

// Restore loads a previously saved token. It reports false when there is no
// usable session; an expired token is cleared from the store.
func (h *Holder) Restore(ctx context.Context) (Identity, bool, error) {
	token, err := h.store.Load(ctx)
	if err != nil {
		return Identity{}, false, fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		return Identity{}, false, nil
	}

	id, err := IdentityFromToken(token)
	if err != nil {
		// Opaque token: keep it, the server decides whether it is valid.
		id = Identity{Token: token}
	}
	if id.Expired(h.now()) {
		h.log.Info(ctx, "stored session expired", "expired_at", id.ExpiresAt)
		_ = h.store.Clear(ctx)
		return Identity{}, false, common.ErrTokenExpired
	}

	h.mu.Lock()
	h.ident = &id
	h.mu.Unlock()
	return id, true, nil
}

// Set installs a new identity (login/register) and persists its token.
func (h *Holder) Set(ctx context.Context, id Identity) error {
	if err := h.store.Save(ctx, id.Token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	h.mu.Lock()
	h.ident = &id
	h.mu.Unlock()
	return nil
}

// SetUser fills in the owner learned from GET /me.
func (h *Holder) SetUser(userID int64, handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ident != nil {
		h.ident.UserID = userID
		h.ident.Handle = handle
	}
}

// Current returns the active identity.
func (h *Holder) Current() (Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ident == nil {
		return Identity{}, false
	}
	return *h.ident, true
}

// AccessToken returns the bearer token, or "" when logged out.
func (h *Holder) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ident == nil {
		return ""
	}
	return h.ident.Token
}

// UserID returns the current user id, or 0 when unknown.
func (h *Holder) UserID() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ident == nil {
		return 0
	}
	return h.ident.UserID
}

// Clear ends the session (logout).
func (h *Holder) Clear(ctx context.Context) error {
	h.mu.Lock()
	h.ident = nil
	h.mu.Unlock()
	if err := h.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Invalidate is called by the API client when the server rejects the
// credential. Store failures are logged, not returned.
func (h *Holder) Invalidate(ctx context.Context) {
	if err := h.Clear(ctx); err != nil && !errors.Is(err, context.Canceled) {
		h.log.Warn(ctx, "failed to clear rejected session", "error", err)
	}
}
