package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// command is one REPL command. Commands with auth set are hidden and
// refused until the user is logged in.
type command struct {
	name  string
	alias string
	usage string
	auth  bool
	run   func(ctx context.Context, args []string) error
}

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	commands() []command
}

// runREPL starts a simple read–eval–print loop for the CoEvo CLI.
//
// It reads a line from r, parses the first token as the
// command and passes the remaining tokens to it. Unknown commands are
// reported back to the user. The loop exits on EOF or when the user
// types "exit" or "quit".
//
// A command error is printed and the loop continues. A panicking command is
// recovered, reported and the loop continues as well.
//
// Commands that prompt for more input read from the same r, so the loop
// never reads ahead of the current line.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("coevo %s> ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help":
			printlnFn(help(a))
			continue
		}

		cmd, ok := lookup(a.commands(), name)
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if cmd.auth && !a.isLoggedIn() {
			printlnFn("Error:", ErrNotLoggedIn)
			continue
		}
		if err := dispatch(ctx, cmd, args); err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

func lookup(cmds []command, name string) (command, bool) {
	for _, c := range cmds {
		if c.name == name || (c.alias != "" && c.alias == name) {
			return c, true
		}
	}
	return command{}, false
}

// dispatch runs cmd, turning a panic into an error.
func dispatch(ctx context.Context, cmd command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error in %q: %v", cmd.name, r)
		}
	}()
	return cmd.run(ctx, args)
}

func help(a execIface) string {
	var names []string
	for _, c := range a.commands() {
		if !c.auth || a.isLoggedIn() {
			names = append(names, c.usage)
		}
	}
	sort.Strings(names)
	return "Available commands:\n  " + strings.Join(append(names, "exit"), "\n  ")
}

// describe renders an error for the user. Usage errors are shown as is.
func describe(err error) string {
	var ue usageError
	if errors.As(err, &ue) {
		return ue.Error()
	}
	return err.Error()
}
