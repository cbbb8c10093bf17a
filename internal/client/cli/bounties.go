package cli

import (
	"context"
	"strconv"

	"github.com/dmitrijs2005/coevo/internal/client/bounties"
	"github.com/dmitrijs2005/coevo/internal/client/shell"
)

// scopeFromArgs picks the bounty scope: an explicit thread id, else the
// open thread, else global.
func (a *App) scopeFromArgs(args []string) (bounties.Scope, error) {
	if len(args) > 0 {
		id, err := argID(args, 0, "bounties [thread-id]")
		if err != nil {
			return bounties.Scope{}, err
		}
		return bounties.ThreadScope(id), nil
	}
	if a.view != nil {
		return bounties.ThreadScope(a.view.ThreadID()), nil
	}
	return bounties.GlobalScope(), nil
}

// mountBoard returns the controller for scope, replacing a board mounted
// for another scope.
func (a *App) mountBoard(ctx context.Context, scope bounties.Scope) (*shell.BountyBoard, error) {
	if a.board != nil && a.board.Scope() == scope {
		return a.board, nil
	}
	a.closeBoard()
	b, err := a.shell.Bounties(ctx, scope)
	a.observe(err)
	if err != nil {
		return nil, err
	}
	a.board = b
	return b, nil
}

// currentBoard is the mounted board, or a global one.
func (a *App) currentBoard(ctx context.Context) (*shell.BountyBoard, error) {
	if a.board != nil {
		return a.board, nil
	}
	return a.mountBoard(ctx, bounties.GlobalScope())
}

func (a *App) Bounties(ctx context.Context, args []string) error {
	scope, err := a.scopeFromArgs(args)
	if err != nil {
		return err
	}
	b, err := a.mountBoard(ctx, scope)
	if err != nil {
		return err
	}
	if b.Stale {
		a.println("(offline, cached list)")
	}
	list := b.List()
	if len(list) == 0 {
		a.println("(no bounties)")
	}
	for _, item := range list {
		a.println(formatBounty(item))
	}
	return nil
}

// CreateBounty: bounty <amount> <title>. Requirements are read as multiple
// lines. The bounty is posted in the open thread.
func (a *App) CreateBounty(ctx context.Context, args []string) error {
	const usage = "bounty <amount> <title>"
	if a.view == nil {
		return ErrNoThreadOpen
	}
	if len(args) < 2 {
		return usageError{usage}
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageError{usage}
	}
	requirements, err := getBlock(a.reader, a.out, "Requirements")
	if err != nil {
		return err
	}
	return a.createBounty(ctx, a.view.ThreadID(), amount, argText(args, 1), requirements)
}

func (a *App) createBounty(ctx context.Context, threadID, amount int64, title, requirements string) error {
	b, err := a.mountBoard(ctx, bounties.ThreadScope(threadID))
	if err != nil {
		return err
	}
	id, err := b.Create(ctx, amount, title, requirements)
	if err != nil {
		return err
	}
	a.printf("Created bounty #%d, %s held in escrow\n", id, credits(amount))
	return nil
}

func (a *App) Claim(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "claim <bounty-id>")
	if err != nil {
		return err
	}
	b, err := a.currentBoard(ctx)
	if err != nil {
		return err
	}
	if err := b.Claim(ctx, id); err != nil {
		return err
	}
	a.printf("Claimed bounty #%d\n", id)
	return nil
}

// Submit: submit <bounty-id> [note]. Without an inline note it is read as
// multiple lines.
func (a *App) Submit(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "submit <bounty-id> [note]")
	if err != nil {
		return err
	}
	note := argText(args, 1)
	if note == "" {
		if note, err = getBlock(a.reader, a.out, "Submission note"); err != nil {
			return err
		}
	}
	return a.submit(ctx, id, note)
}

func (a *App) submit(ctx context.Context, id int64, note string) error {
	b, err := a.currentBoard(ctx)
	if err != nil {
		return err
	}
	if err := b.Submit(ctx, id, note); err != nil {
		return err
	}
	a.printf("Submitted bounty #%d\n", id)
	return nil
}

func (a *App) Pay(ctx context.Context, args []string) error {
	return a.pay(ctx, args, true, "pay <bounty-id>")
}

func (a *App) Refund(ctx context.Context, args []string) error {
	return a.pay(ctx, args, false, "refund <bounty-id>")
}

func (a *App) pay(ctx context.Context, args []string, accept bool, usage string) error {
	id, err := argID(args, 0, usage)
	if err != nil {
		return err
	}
	b, err := a.currentBoard(ctx)
	if err != nil {
		return err
	}
	if err := b.Pay(ctx, id, accept); err != nil {
		return err
	}
	if accept {
		a.printf("Paid bounty #%d\n", id)
	} else {
		a.printf("Refunded bounty #%d\n", id)
	}
	return nil
}
