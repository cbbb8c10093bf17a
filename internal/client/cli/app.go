package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/coevo/internal/client/archive"
	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/config"
	"github.com/dmitrijs2005/coevo/internal/client/metrics"
	"github.com/dmitrijs2005/coevo/internal/client/repositories"
	"github.com/dmitrijs2005/coevo/internal/client/services"
	"github.com/dmitrijs2005/coevo/internal/client/session"
	"github.com/dmitrijs2005/coevo/internal/client/shell"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	logFile io.Closer
	db      *sql.DB
	repos   *repositories.Repositories
	holder  *session.Holder
	api     *client.HTTPClient
	metrics *metrics.Metrics

	authService   services.AuthService
	walletService services.WalletService
	systemService services.SystemService

	shell *shell.Shell
	view  *shell.ThreadView
	board *shell.BountyBoard

	Mode   Mode
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local cache and constructs the services. in and out are
// the user's terminal.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log, logFile, err := newLogger(c)
	if err != nil {
		return nil, err
	}

	db, err := repositories.InitDatabase(ctx, c.DBPath)
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	repos := repositories.New(db)

	m := metrics.New()
	holder := session.NewHolder(session.NewMetadataStore(repos.Metadata), log)
	api, err := client.NewHTTPClient(client.Options{
		BaseURL:    c.ServerURL,
		APIPrefix:  c.APIPrefix,
		EventsPath: c.EventsPath,
		Timeout:    c.RequestTimeout,
		Tokens:     holder,
		Logger:     log,
		Metrics:    m,
	})
	if err != nil {
		_ = db.Close()
		closeQuietly(logFile)
		return nil, err
	}

	var archiver services.Archiver
	if c.Archive.Enabled() {
		up, err := archive.NewS3Uploader(ctx, c.Archive, log)
		if err != nil {
			_ = db.Close()
			closeQuietly(logFile)
			return nil, err
		}
		archiver = up
	}

	return &App{
		config:        c,
		log:           log,
		logFile:       logFile,
		db:            db,
		repos:         repos,
		holder:        holder,
		api:           api,
		metrics:       m,
		authService:   services.NewAuthService(api, holder, repos, log),
		walletService: services.NewWalletService(api, repos.Metadata, log),
		systemService: services.NewSystemService(api, archiver, log),
		reader:        bufio.NewReader(in),
		out:           out,
	}, nil
}

func newLogger(c *config.Config) (logging.Logger, io.Closer, error) {
	if c.LogFile == "" {
		return logging.New(c.LogLevel, os.Stderr), nil, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.New(c.LogLevel, f), f, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// Close ends the live session (the stored token is kept) and releases the
// local database.
func (a *App) Close() error {
	a.stopSession()
	_ = a.api.Close()
	err := a.db.Close()
	closeQuietly(a.logFile)
	return err
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(context.Background(), "switched mode", "mode", mode)
	}
}

// observe switches between online and offline mode from the outcome of a
// server call.
func (a *App) observe(err error) {
	switch {
	case err == nil:
		a.setMode(ModeOnline)
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
	}
}

// isLoggedIn reports whether a session shell is running.
func (a *App) isLoggedIn() bool {
	return a.shell != nil
}

// startSession mounts the session shell for the current identity.
func (a *App) startSession(ctx context.Context) error {
	if a.shell != nil {
		return nil
	}
	sh := shell.New(shell.Options{
		API:               a.api,
		Session:           a.holder,
		ReconnectInterval: a.config.ReconnectInterval,
		NotificationLimit: a.config.NotificationLimit,
		NotificationCache: a.repos.Notifications,
		BountyCache:       a.repos.Bounties,
		Metrics:           a.metrics,
		Logger:            a.log,
	})
	if err := sh.Start(ctx); err != nil {
		return err
	}
	a.shell = sh
	return nil
}

func (a *App) stopSession() {
	a.closeView()
	a.closeBoard()
	if a.shell != nil {
		a.shell.Close()
		a.shell = nil
	}
}

func (a *App) closeView() {
	if a.view != nil {
		a.view.Close()
		a.view = nil
	}
}

func (a *App) closeBoard() {
	if a.board != nil {
		a.board.Close()
		a.board = nil
	}
}

// serveMetrics starts the /metrics listener when one is configured.
func (a *App) serveMetrics(ctx context.Context) {
	if a.config.MetricsAddr == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.config.MetricsAddr, a.log); err != nil {
			a.log.Error(ctx, "metrics listener failed", "error", err)
		}
	}()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
