// Package shell owns the live state of one login session.
//
// # Overview
//
// A Shell is created after login and closed at logout. It holds the single
// server-push connection of the session, the Bus that fans the stream out,
// and the notification manager that is mounted for the whole session.
// Thread views and bounty controllers opened through the Shell subscribe to
// the same Bus and are closed with it.
//
// Nothing in this package is global: tests and the CLI construct as many
// shells as they need, each with its own client, store and metrics.
//
// # Lifecycle
//
//	sh := shell.New(opts)
//	if err := sh.Start(ctx); err != nil { ... }
//	defer sh.Close()
//
//	view, err := sh.OpenThread(ctx, 42)
//	...
//	view.Close()
//
// Close stops the push connection first, then closes every view and
// controller still open, then the Bus. No consumer observes an event after
// Close returns.
package shell
