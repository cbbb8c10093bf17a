package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/session"
	"github.com/dmitrijs2005/coevo/internal/common"
)

// Interactive input, swapped in tests.
var (
	getLine   = ReadLine
	getSecret = ReadSecret
	getBlock  = ReadBlock
)

// promptHandle returns args[0] or asks for a handle.
func (a *App) promptHandle(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getLine(a.reader, a.out, "Handle")
}

// Register prompts for a handle, password and optional email, creates the
// account and logs in.
func (a *App) Register(ctx context.Context, args []string) error {
	handle, err := a.promptHandle(args)
	if err != nil {
		return err
	}
	email, err := getLine(a.reader, a.out, "Email (optional)")
	if err != nil {
		return err
	}
	return a.register(ctx, handle, email)
}

func (a *App) register(ctx context.Context, handle, email string) error {
	password, err := getSecret(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.authService.Register(ctx, handle, password, email)
	a.observe(err)
	if err != nil {
		return err
	}
	return a.loggedIn(ctx, id)
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context, args []string) error {
	handle, err := a.promptHandle(args)
	if err != nil {
		return err
	}
	password, err := getSecret(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	a.stopSession()
	id, err := a.authService.Login(ctx, handle, password)
	a.observe(err)
	if err != nil {
		return err
	}
	return a.loggedIn(ctx, id)
}

func (a *App) loggedIn(ctx context.Context, id session.Identity) error {
	a.printf("Logged in as %s\n", id.Handle)
	return a.startSession(ctx)
}

// Restore reuses a stored session. It reports false when the user has to
// log in. An unreachable server leaves the client logged in, offline.
func (a *App) Restore(ctx context.Context) (bool, error) {
	id, ok, err := a.authService.Restore(ctx)
	a.observe(err)
	if err != nil && !errors.Is(err, client.ErrUnavailable) {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err != nil {
		a.printf("Server unavailable, showing cached data for %s\n", id.Handle)
	}
	return true, a.startSession(ctx)
}

// requireSession restores the stored session or fails with ErrNotLoggedIn.
func (a *App) requireSession(ctx context.Context) error {
	if a.shell != nil {
		return nil
	}
	ok, err := a.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotLoggedIn
	}
	return nil
}

// Logout ends the session and wipes the local cache.
func (a *App) Logout(ctx context.Context, _ []string) error {
	a.stopSession()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out")
	return nil
}

func (a *App) Whoami(ctx context.Context, _ []string) error {
	me, err := a.authService.Me(ctx)
	a.observe(err)
	if err != nil {
		return err
	}
	a.printf("%s (id %d, %s)\n", me.Handle, me.ID, me.Role)
	return nil
}
