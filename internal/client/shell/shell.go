package shell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/bounties"
	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/events"
	"github.com/dmitrijs2005/coevo/internal/client/metrics"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/client/notifications"
	"github.com/dmitrijs2005/coevo/internal/client/threads"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

var (
	ErrNotStarted     = errors.New("session shell is not started")
	ErrAlreadyStarted = errors.New("session shell is already started")
	ErrClosed         = errors.New("session shell is closed")
)

// Session supplies the credential for the push connection and the user id
// that notification pushes are matched against. session.Holder implements it.
type Session interface {
	AccessToken() string
	UserID() int64
}

type Options struct {
	API     client.Client
	Session Session
	// HTTPClient is used for the push connection. It must not carry a
	// request timeout.
	HTTPClient        *http.Client
	ReconnectInterval time.Duration
	NotificationLimit int

	NotificationCache notifications.Cache
	BountyCache       bounties.Cache

	// Metrics is optional.
	Metrics *metrics.Metrics
	Logger  logging.Logger

	// OnNotifications is called after every notification state change.
	OnNotifications func(notifications.Snapshot)
}

type Shell struct {
	api         client.Client
	bus         *events.Bus
	connector   *events.Connector
	notif       *notifications.Manager
	bountyCache bounties.Cache
	log         logging.Logger

	mu         sync.Mutex
	started    bool
	closed     bool
	runCtx     context.Context
	cancel     context.CancelFunc
	disconnect func()
	notifSub   *events.Subscription
	notifDone  chan struct{}
	closers    map[closer]struct{}
}

type closer interface {
	Close()
}

func New(opts Options) *Shell {
	log := logging.OrNop(opts.Logger).With("component", "shell")

	copts := events.Options{
		URL:               opts.API.EventsURL(),
		HTTPClient:        opts.HTTPClient,
		Tokens:            opts.Session,
		ReconnectInterval: opts.ReconnectInterval,
		Logger:            opts.Logger,
	}
	onChange := opts.OnNotifications
	if opts.Metrics != nil {
		copts.Metrics = opts.Metrics
		m, next := opts.Metrics, onChange
		onChange = func(s notifications.Snapshot) {
			m.SetUnread(s.Unread)
			if next != nil {
				next(s)
			}
		}
	}

	return &Shell{
		api:       opts.API,
		bus:       events.NewBus(),
		connector: events.NewConnector(copts),
		notif: notifications.NewManager(notifications.Options{
			API:      opts.API,
			User:     opts.Session,
			Limit:    opts.NotificationLimit,
			Cache:    opts.NotificationCache,
			Logger:   opts.Logger,
			OnChange: onChange,
		}),
		bountyCache: opts.BountyCache,
		log:         log,
		closers:     map[closer]struct{}{},
	}
}

// Start mounts the notification manager, opens the push connection and
// loads the notification state. A failed initial load is logged; the
// manager keeps the cached state and catches up on the next resync.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	runCtx := s.runCtx

	if ok, err := s.notif.Restore(ctx); err != nil {
		s.log.Warn(ctx, "failed to restore notifications", "error", err)
	} else if ok {
		s.log.Debug(ctx, "restored cached notifications")
	}

	s.notifSub = s.bus.Subscribe(notifications.Filter())
	s.notifDone = make(chan struct{})
	go func(sub *events.Subscription, done chan struct{}) {
		defer close(done)
		s.notif.Run(runCtx, sub)
	}(s.notifSub, s.notifDone)

	s.disconnect = s.connector.Connect(runCtx, s.bus.Publish)
	s.mu.Unlock()

	if err := s.notif.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "initial notification load failed", "error", err)
	}
	s.log.Info(ctx, "session started")
	return nil
}

func (s *Shell) Bus() *events.Bus {
	return s.bus
}

func (s *Shell) Notifications() *notifications.Manager {
	return s.notif
}

func (s *Shell) context() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, ErrClosed
	case !s.started:
		return nil, ErrNotStarted
	}
	return s.runCtx, nil
}

func (s *Shell) track(c closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closers[c] = struct{}{}
	return true
}

func (s *Shell) untrack(c closer) {
	s.mu.Lock()
	delete(s.closers, c)
	s.mu.Unlock()
}

// OpenThread mounts a live view of one thread.
func (s *Shell) OpenThread(ctx context.Context, threadID int64) (*ThreadView, error) {
	runCtx, err := s.context()
	if err != nil {
		return nil, err
	}

	v := &ThreadView{View: threads.NewView(s.api, threadID, s.log), shell: s}
	v.Attach(runCtx, s.bus)
	if !s.track(v) {
		v.View.Close()
		return nil, ErrClosed
	}
	if err := v.Refresh(ctx); err != nil {
		v.Close()
		return nil, fmt.Errorf("open thread %d: %w", threadID, err)
	}
	return v, nil
}

// Bounties mounts a bounty controller for scope. The cached list is shown
// when the initial load fails; without one the error is returned.
func (s *Shell) Bounties(ctx context.Context, scope bounties.Scope) (*BountyBoard, error) {
	runCtx, err := s.context()
	if err != nil {
		return nil, err
	}

	ctrl := bounties.NewController(s.api, scope, bounties.Options{Logger: s.log, Cache: s.bountyCache})
	cached, cerr := ctrl.Restore(ctx)
	if cerr != nil {
		s.log.Warn(ctx, "failed to restore cached bounties", "scope", scope.String(), "error", cerr)
	}

	runCtx, cancel := context.WithCancel(runCtx)
	b := &BountyBoard{
		Controller: ctrl,
		shell:      s,
		sub:        s.bus.Subscribe(ctrl.Filter()),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		ctrl.Run(runCtx, b.sub)
	}()
	if !s.track(b) {
		b.stop()
		return nil, ErrClosed
	}

	if err := ctrl.Refresh(ctx); err != nil {
		if !cached {
			b.Close()
			return nil, fmt.Errorf("load bounties: %w", err)
		}
		s.log.Warn(ctx, "showing cached bounties", "scope", scope.String(), "error", err)
		b.Stale = true
	}
	return b, nil
}

// Close tears the session down. It is idempotent.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	disconnect, cancel := s.disconnect, s.cancel
	notifSub, notifDone := s.notifSub, s.notifDone
	open := make([]closer, 0, len(s.closers))
	for c := range s.closers {
		open = append(open, c)
	}
	s.closers = map[closer]struct{}{}
	s.mu.Unlock()

	// In-flight requests on runCtx must abort before consumers are awaited.
	if cancel != nil {
		cancel()
	}
	if disconnect != nil {
		disconnect()
	}
	for _, c := range open {
		switch v := c.(type) {
		case *ThreadView:
			v.View.Close()
		case *BountyBoard:
			v.stop()
		}
	}
	if notifSub != nil {
		notifSub.Close()
		<-notifDone
	}
	s.bus.Close()
	s.log.Info(context.Background(), "session closed")
}

// ThreadView is a thread live view owned by a Shell.
type ThreadView struct {
	*threads.View
	shell *Shell
}

func (v *ThreadView) Close() {
	v.shell.untrack(v)
	v.View.Close()
}

// BountyBoard is a bounty controller owned by a Shell. Stale reports that
// the list came from the local cache.
type BountyBoard struct {
	*bounties.Controller
	Stale bool

	shell  *Shell
	sub    *events.Subscription
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (b *BountyBoard) Close() {
	b.shell.untrack(b)
	b.stop()
}

func (b *BountyBoard) stop() {
	b.once.Do(func() {
		b.cancel()
		b.sub.Close()
		<-b.done
	})
}

// Publish injects an envelope as if it came from the stream.
func (s *Shell) Publish(env models.Envelope) {
	s.bus.Publish(env)
}
