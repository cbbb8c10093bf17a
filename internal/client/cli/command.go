package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/coevo/internal/client/config"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// newApp is a test seam for NewApp.
var newApp = NewApp

// Execute loads the configuration and runs the command tree.
// This is called by main.main().
func Execute() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg, os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", describe(err))
		os.Exit(1)
	}
}

type runner struct {
	cfg *config.Config
	in  io.Reader
	out io.Writer
}

// with opens an App for one command. When session is set the stored login
// is restored first and the command fails without one.
func (r runner) with(session bool, fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, r.cfg, r.in, r.out)
		if err != nil {
			return err
		}
		defer a.Close()

		if session {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
		}
		return fn(ctx, a, args)
	}
}

// NewRootCmd builds the command tree. cfg is already fully loaded; the
// configuration flags are registered only so that cobra accepts and
// documents them.
func NewRootCmd(cfg *config.Config, in io.Reader, out io.Writer) *cobra.Command {
	r := runner{cfg: cfg, in: in, out: out}

	root := &cobra.Command{
		Use:   "coevo",
		Short: "CoEvo community client",
		Long: `CoEvo CLI talks to a CoEvo backend: boards and threads with live updates,
notifications, the credit wallet and escrow-backed bounties.

Without a subcommand an interactive shell is started.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: r.with(false, func(ctx context.Context, a *App, _ []string) error {
			return a.Root(ctx)
		}),
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	flags := *cfg
	config.RegisterFlags(root.PersistentFlags(), &flags)

	root.AddCommand(
		newLoginCmd(r),
		newRegisterCmd(r),
		simpleCmd(r, "logout", "Log out and wipe the local cache", cobra.NoArgs, (*App).Logout),
		simpleCmd(r, "whoami", "Show the logged in user", cobra.NoArgs, (*App).Whoami),
		simpleCmd(r, "boards", "List boards", cobra.NoArgs, (*App).Boards),
		simpleCmd(r, "threads <board-id>", "List threads of a board", cobra.ExactArgs(1), (*App).Threads),
		simpleCmd(r, "thread <thread-id>", "Show a thread", cobra.ExactArgs(1), (*App).Open),
		newPostCmd(r),
		simpleCmd(r, "wallet", "Show balance and recent ledger", cobra.NoArgs, (*App).Wallet),
		simpleCmd(r, "tip <handle> <amount>", "Send credits to another user", cobra.ExactArgs(2), (*App).Tip),
		newNotificationsCmd(r),
		newBountiesCmd(r),
		newBountyCmd(r),
		newTailCmd(r),
		simpleCmd(r, "export [path]", "Download the audit export", cobra.MaximumNArgs(1), (*App).Export),
		simpleCmd(r, "upload <path>", "Upload an artifact", cobra.ExactArgs(1), (*App).Upload),
		simpleCmd(r, "pubkey", "Show the server signing key", cobra.NoArgs, (*App).PublicKey),
	)
	return root
}

// simpleCmd wraps an App method that needs a session.
func simpleCmd(r runner, use, short string, args cobra.PositionalArgs, fn func(*App, context.Context, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: r.with(true, func(ctx context.Context, a *App, args []string) error {
			return fn(a, ctx, args)
		}),
	}
}

func newLoginCmd(r runner) *cobra.Command {
	return &cobra.Command{
		Use:   "login [handle]",
		Short: "Log in; the password is read from the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: r.with(false, func(ctx context.Context, a *App, args []string) error {
			return a.Login(ctx, args)
		}),
	}
}

func newRegisterCmd(r runner) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register <handle>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: r.with(false, func(ctx context.Context, a *App, args []string) error {
			return a.register(ctx, args[0], email)
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "optional email address")
	return cmd
}

func newPostCmd(r runner) *cobra.Command {
	return &cobra.Command{
		Use:   "post <thread-id> <text>",
		Short: "Post to a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: r.with(true, func(ctx context.Context, a *App, args []string) error {
			id, err := argID(args, 0, "post <thread-id> <text>")
			if err != nil {
				return err
			}
			v, err := a.shell.OpenThread(ctx, id)
			if err != nil {
				return err
			}
			a.view = v
			return a.Post(ctx, args[1:])
		}),
	}
}

func newNotificationsCmd(r runner) *cobra.Command {
	cmd := simpleCmd(r, "notifications", "Show unread count and recent notifications", cobra.NoArgs, (*App).Notifications)
	cmd.AddCommand(simpleCmd(r, "read <notification-id>", "Mark a notification read", cobra.ExactArgs(1), (*App).Read))
	return cmd
}

func newBountiesCmd(r runner) *cobra.Command {
	var thread int64
	cmd := &cobra.Command{
		Use:   "bounties",
		Short: "List bounties, globally or for one thread",
		Args:  cobra.NoArgs,
		RunE: r.with(true, func(ctx context.Context, a *App, _ []string) error {
			var args []string
			if thread != 0 {
				args = []string{fmt.Sprint(thread)}
			}
			return a.Bounties(ctx, args)
		}),
	}
	cmd.Flags().Int64Var(&thread, "thread", 0, "thread id")
	return cmd
}

func newBountyCmd(r runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounty",
		Short: "Create and move bounties through the escrow workflow",
	}

	var (
		thread       int64
		amount       int64
		title        string
		requirements string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Post a bounty; the amount is held in escrow",
		Args:  cobra.NoArgs,
		RunE: r.with(true, func(ctx context.Context, a *App, _ []string) error {
			return a.createBounty(ctx, thread, amount, title, requirements)
		}),
	}
	create.Flags().Int64Var(&thread, "thread", 0, "thread id")
	create.Flags().Int64Var(&amount, "amount", 0, "credits to escrow")
	create.Flags().StringVar(&title, "title", "", "bounty title")
	create.Flags().StringVar(&requirements, "requirements", "", "requirements (markdown)")
	_ = create.MarkFlagRequired("thread")
	_ = create.MarkFlagRequired("title")

	var note string
	submit := &cobra.Command{
		Use:   "submit <bounty-id>",
		Short: "Submit work for a claimed bounty",
		Args:  cobra.ExactArgs(1),
		RunE: r.with(true, func(ctx context.Context, a *App, args []string) error {
			id, err := argID(args, 0, "submit <bounty-id>")
			if err != nil {
				return err
			}
			return a.submit(ctx, id, note)
		}),
	}
	submit.Flags().StringVar(&note, "note", "", "submission note (markdown)")

	cmd.AddCommand(
		create,
		simpleCmd(r, "claim <bounty-id>", "Claim an open bounty", cobra.ExactArgs(1), (*App).Claim),
		submit,
		simpleCmd(r, "pay <bounty-id>", "Accept a submission and pay the claimant", cobra.ExactArgs(1), (*App).Pay),
		simpleCmd(r, "refund <bounty-id>", "Reject a submission and refund the escrow", cobra.ExactArgs(1), (*App).Refund),
	)
	return cmd
}

func newTailCmd(r runner) *cobra.Command {
	var thread int64
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print live events until interrupted",
		Args:  cobra.NoArgs,
		RunE: r.with(true, func(ctx context.Context, a *App, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.serveMetrics(ctx)
			return a.Tail(ctx, thread)
		}),
	}
	cmd.Flags().Int64Var(&thread, "thread", 0, "only events of this thread")
	return cmd
}
