package cli

import (
	"context"
	"strconv"
)

func (a *App) Wallet(ctx context.Context, _ []string) error {
	snap, stale, err := a.walletService.Snapshot(ctx)
	a.observe(err)
	if err != nil {
		return err
	}
	if stale {
		a.println("(offline, cached wallet)")
	}
	a.printf("Balance: %s\n", credits(snap.Wallet.Balance))
	for _, tx := range snap.Ledger {
		a.println(formatLedger(tx))
	}
	return nil
}

func (a *App) Tip(ctx context.Context, args []string) error {
	const usage = "tip <handle> <amount>"
	if len(args) != 2 {
		return usageError{usage}
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return usageError{usage}
	}
	txID, err := a.walletService.Tip(ctx, args[0], amount)
	a.observe(err)
	if err != nil {
		return err
	}
	a.printf("Sent %s to %s (tx #%d)\n", credits(amount), args[0], txID)
	return nil
}
