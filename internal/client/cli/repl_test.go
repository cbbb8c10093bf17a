package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }

func (f *fakeExec) record(name string) func(context.Context, []string) error {
	return func(_ context.Context, args []string) error {
		f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
		return nil
	}
}

func (f *fakeExec) commands() []command {
	return []command{
		{name: "login", usage: "login", run: func(ctx context.Context, args []string) error {
			f.loggedIn = true
			return f.record("login")(ctx, args)
		}},
		{name: "wallet", alias: "w", usage: "(w)allet", auth: true, run: f.record("wallet")},
		{name: "tip", usage: "tip <handle> <amount>", auth: true, run: f.record("tip")},
		{name: "fail", usage: "fail", run: func(context.Context, []string) error {
			return errors.New("server said no")
		}},
		{name: "usage", usage: "usage", run: func(context.Context, []string) error {
			return usageError{"usage <x>"}
		}},
		{name: "crash", usage: "crash", run: func(context.Context, []string) error {
			var m map[string]int
			m["boom"]++
			return nil
		}},
	}
}

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func run(exec execIface, input string) {
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := capturePrintln(t)

	exec := &fakeExec{}
	run(exec, strings.Join([]string{
		"wallet",
		"login alice",
		"",
		"w",
		"tip bob 5",
		"foobar",
		"exit",
		"wallet",
	}, "\n"))

	assert.Equal(t, []string{"login alice", "wallet", "tip bob 5"}, exec.calls)
	assert.Contains(t, *out, "Error: not logged in")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_ErrorsDoNotStopTheLoop(t *testing.T) {
	out := capturePrintln(t)

	exec := &fakeExec{loggedIn: true}
	run(exec, "fail\nusage\ncrash\nwallet")

	assert.Contains(t, *out, "Error: server said no")
	assert.Contains(t, *out, "Error: usage: usage <x>")
	found := false
	for _, l := range *out {
		if strings.HasPrefix(l, `Error: internal error in "crash"`) {
			found = true
		}
	}
	assert.True(t, found, "panic must be reported: %v", *out)
	assert.Equal(t, []string{"wallet"}, exec.calls)
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	out := capturePrintln(t)

	run(&fakeExec{}, "help\n")
	loggedOut := strings.Join(*out, "\n")
	assert.Contains(t, loggedOut, "login")
	assert.NotContains(t, loggedOut, "(w)allet")

	*out = nil
	run(&fakeExec{loggedIn: true}, "help\n")
	assert.Contains(t, strings.Join(*out, "\n"), "(w)allet")
}

func TestRunREPL_PromptShowsStatus(t *testing.T) {
	out := capturePrintln(t)
	run(&fakeExec{}, "quit\n")
	assert.Equal(t, "coevo status> ", (*out)[0])
}
