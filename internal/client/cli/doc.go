// Package cli provides the interactive CoEvo command-line client.
//
// It wires configuration, the local cache database, the API client and a
// session shell, and exposes them two ways: as a cobra command tree for
// one-shot commands (login, wallet, bounty claim 7, tail, ...) and as an
// interactive REPL started when no subcommand is given.
//
// The session token is kept in the local cache database, so a login done by
// one invocation is reused by the next. While the server is unreachable the
// client runs in offline mode and shows the last cached state.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, NewRootCmd and runREPL for details.
package cli
