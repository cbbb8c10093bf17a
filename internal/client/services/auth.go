// Package services contains application services for the CoEvo client.
// This file defines the authentication service: login, registration,
// session restore and logout with local data cleanup.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/client/session"
	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange credentials for a token, install it and resolve the
//     user id through /me.
//   - Register: create the account, then Login.
//   - Restore: reuse the stored token. A rejected token is cleared; an
//     unreachable server keeps it and returns an ErrUnavailable error.
//   - Logout: forget the token and wipe locally cached data.
//
// Passwords are wiped after use.
type AuthService interface {
	Login(ctx context.Context, handle string, password []byte) (session.Identity, error)
	Register(ctx context.Context, handle string, password []byte, email string) (session.Identity, error)
	Restore(ctx context.Context) (session.Identity, bool, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (models.Me, error)
}

// LocalData is wiped on logout.
type LocalData interface {
	Wipe(ctx context.Context) error
}

type authService struct {
	client client.Client
	holder *session.Holder
	local  LocalData
	log    logging.Logger
}

// NewAuthService constructs an AuthService. local may be nil.
func NewAuthService(c client.Client, holder *session.Holder, local LocalData, log logging.Logger) AuthService {
	return &authService{client: c, holder: holder, local: local, log: logging.OrNop(log)}
}

func (a *authService) Login(ctx context.Context, handle string, password []byte) (session.Identity, error) {
	defer common.WipeByteArray(password)

	token, err := a.client.Login(ctx, handle, string(password))
	if err != nil {
		return session.Identity{}, fmt.Errorf("login error: %w", err)
	}

	id, err := session.IdentityFromToken(token)
	if err != nil {
		id = session.Identity{Token: token, Handle: handle}
	}
	if err := a.holder.Set(ctx, id); err != nil {
		return session.Identity{}, err
	}

	if err := a.resolveUser(ctx); err != nil {
		_ = a.holder.Clear(ctx)
		return session.Identity{}, err
	}
	cur, _ := a.holder.Current()
	a.log.Info(ctx, "logged in", "handle", cur.Handle, "user_id", cur.UserID)
	return cur, nil
}

func (a *authService) Register(ctx context.Context, handle string, password []byte, email string) (session.Identity, error) {
	req := client.RegisterRequest{Handle: handle, Password: string(password)}
	if email != "" {
		req.Email = &email
	}
	if _, err := a.client.Register(ctx, req); err != nil {
		common.WipeByteArray(password)
		return session.Identity{}, fmt.Errorf("register error: %w", err)
	}
	return a.Login(ctx, handle, password)
}

func (a *authService) Restore(ctx context.Context) (session.Identity, bool, error) {
	id, ok, err := a.holder.Restore(ctx)
	if errors.Is(err, common.ErrTokenExpired) {
		return session.Identity{}, false, nil
	}
	if err != nil || !ok {
		return session.Identity{}, false, err
	}

	if err := a.resolveUser(ctx); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			// The client already cleared the rejected token.
			return session.Identity{}, false, nil
		}
		return id, true, err
	}
	cur, _ := a.holder.Current()
	return cur, true, nil
}

func (a *authService) resolveUser(ctx context.Context) error {
	me, err := a.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	a.holder.SetUser(me.ID, me.Handle)
	return nil
}

func (a *authService) Me(ctx context.Context) (models.Me, error) {
	return a.client.Me(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.holder.Clear(ctx); err != nil {
		return err
	}
	if a.local != nil {
		if err := a.local.Wipe(ctx); err != nil {
			return fmt.Errorf("failed to wipe local data: %w", err)
		}
	}
	return nil
}
