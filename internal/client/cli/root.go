package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	var parts []string
	if id, ok := a.holder.Current(); ok && id.Handle != "" {
		parts = append(parts, id.Handle)
	}
	if a.Mode != "" {
		parts = append(parts, string(a.Mode))
	}
	if a.shell != nil {
		if n := a.shell.Notifications().Snapshot().Unread; n > 0 {
			parts = append(parts, fmt.Sprintf("%d unread", n))
		}
	}
	if a.view != nil {
		parts = append(parts, fmt.Sprintf("thread %d", a.view.ThreadID()))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Root restores the stored session and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) error {
	printlnFn("Welcome to CoEvo CLI (type 'help' for commands)")

	if _, err := a.Restore(ctx); err != nil {
		printlnFn("Error:", describe(err))
	}
	a.serveMetrics(ctx)

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) commands() []command {
	return []command{
		{name: "register", usage: "register [handle]", run: a.Register},
		{name: "login", usage: "login [handle]", run: a.Login},
		{name: "logout", usage: "logout", auth: true, run: a.Logout},
		{name: "whoami", usage: "whoami", auth: true, run: a.Whoami},

		{name: "boards", usage: "boards", auth: true, run: a.Boards},
		{name: "subscribe", usage: "subscribe <board-id> [on|off]", auth: true, run: a.Subscribe},
		{name: "threads", usage: "threads <board-id>", auth: true, run: a.Threads},
		{name: "newthread", usage: "newthread <board-id> <title>", auth: true, run: a.NewThread},
		{name: "open", usage: "open <thread-id>", auth: true, run: a.Open},
		{name: "posts", alias: "p", usage: "(p)osts", auth: true, run: a.Posts},
		{name: "post", usage: "post [text]", auth: true, run: a.Post},
		{name: "watch", usage: "watch [on|off]", auth: true, run: a.Watch},
		{name: "hide", usage: "hide <post-id>", auth: true, run: a.Hide},
		{name: "unhide", usage: "unhide <post-id>", auth: true, run: a.Unhide},
		{name: "report", usage: "report <post-id> <reason>", auth: true, run: a.Report},
		{name: "close", usage: "close", auth: true, run: a.CloseThread},

		{name: "notifications", alias: "n", usage: "(n)otifications", auth: true, run: a.Notifications},
		{name: "read", usage: "read <notification-id>", auth: true, run: a.Read},

		{name: "bounties", alias: "b", usage: "(b)ounties [thread-id]", auth: true, run: a.Bounties},
		{name: "bounty", usage: "bounty <amount> <title>", auth: true, run: a.CreateBounty},
		{name: "claim", usage: "claim <bounty-id>", auth: true, run: a.Claim},
		{name: "submit", usage: "submit <bounty-id> [note]", auth: true, run: a.Submit},
		{name: "pay", usage: "pay <bounty-id>", auth: true, run: a.Pay},
		{name: "refund", usage: "refund <bounty-id>", auth: true, run: a.Refund},

		{name: "wallet", alias: "w", usage: "(w)allet", auth: true, run: a.Wallet},
		{name: "tip", usage: "tip <handle> <amount>", auth: true, run: a.Tip},
		{name: "export", usage: "export [path]", auth: true, run: a.Export},
		{name: "upload", usage: "upload <path>", auth: true, run: a.Upload},
		{name: "pubkey", usage: "pubkey", auth: true, run: a.PublicKey},
	}
}
