package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/common"
	"github.com/dmitrijs2005/coevo/internal/logging"
	"golang.org/x/time/rate"
)

// TokenSource supplies the bearer credential for the stream request.
type TokenSource interface {
	AccessToken() string
}

// invalidator is implemented by token sources that can drop a rejected
// token, such as session.Holder.
type invalidator interface {
	Invalidate(ctx context.Context)
}

// ErrStreamUnauthorized is returned by a connection the server rejected
// with 401. The connector stops instead of retrying with the same token.
var ErrStreamUnauthorized = errors.New("event stream unauthorized")

// Metrics observes the push channel.
type Metrics interface {
	StreamConnected()
	StreamDisconnected()
	EventReceived(eventType string)
	EventDropped()
}

type Options struct {
	URL        string
	HTTPClient *http.Client
	Tokens     TokenSource
	// ReconnectInterval spaces connection attempts. Zero disables
	// reconnection: the stream is opened once.
	ReconnectInterval time.Duration
	Logger            logging.Logger
	Metrics           Metrics
}

// Connector owns the server-push connection of one session.
type Connector struct {
	url       string
	http      *http.Client
	tokens    TokenSource
	reconnect time.Duration
	log       logging.Logger
	metrics   Metrics
}

func NewConnector(opts Options) *Connector {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Connector{
		url:       opts.URL,
		http:      hc,
		tokens:    opts.Tokens,
		reconnect: opts.ReconnectInterval,
		log:       logging.OrNop(opts.Logger).With("component", "events"),
		metrics:   opts.Metrics,
	}
}

// Connect opens the stream in the background and passes every parsed
// envelope to onEvent, in transport order, from a single goroutine.
// Malformed messages are dropped. After a reconnect a resync envelope is
// delivered before any new message.
//
// disconnect stops the stream and waits for the reader to exit; no
// onEvent call happens after it returns. It is idempotent and must not be
// called from inside onEvent.
func (c *Connector) Connect(ctx context.Context, onEvent func(models.Envelope)) (disconnect func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.run(ctx, onEvent)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (c *Connector) run(ctx context.Context, onEvent func(models.Envelope)) {
	var limiter *rate.Limiter
	if c.reconnect > 0 {
		limiter = rate.NewLimiter(rate.Every(c.reconnect), 1)
	}

	connected := false
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		opened, err := c.stream(ctx, connected, onEvent)
		connected = connected || opened
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrStreamUnauthorized) {
			c.log.Warn(ctx, "event stream rejected the session token, not reconnecting")
			if inv, ok := c.tokens.(invalidator); ok {
				inv.Invalidate(ctx)
			}
			return
		}
		if err != nil {
			c.log.Warn(ctx, "event stream interrupted", "error", err)
		} else {
			c.log.Info(ctx, "event stream closed by server")
		}
		if limiter == nil {
			return
		}
	}
}

// stream runs one connection. opened reports whether the server accepted
// it.
func (c *Connector) stream(ctx context.Context, resync bool, onEvent func(models.Envelope)) (opened bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return false, ErrStreamUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.log.Info(ctx, "event stream connected", "url", c.url)
	if c.metrics != nil {
		c.metrics.StreamConnected()
		defer c.metrics.StreamDisconnected()
	}
	if resync {
		onEvent(models.NewResync())
	}

	sc := newScanner(resp.Body)
	for sc.Next() {
		f := sc.Frame()
		if f.Event != "" && f.Event != "message" {
			continue
		}
		env, err := models.ParseEnvelope([]byte(f.Data))
		if err != nil {
			c.log.Debug(ctx, "dropping malformed event", "error", err)
			if c.metrics != nil {
				c.metrics.EventDropped()
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.EventReceived(string(env.Type))
		}
		if ctx.Err() != nil {
			return true, nil
		}
		onEvent(env)
	}
	return true, sc.Err()
}
