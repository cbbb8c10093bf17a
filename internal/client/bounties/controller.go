// Package bounties drives the escrow workflow of bounties:
// open -> claimed -> submitted -> paid or refunded.
//
// The server enforces transition legality and actor constraints. The
// controller never pre-validates a status; after every transition attempt,
// successful or not, it re-fetches the list for its scope so local state
// always converges to the server's.
package bounties

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/coevo/internal/client/client"
	"github.com/dmitrijs2005/coevo/internal/client/events"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

var (
	ErrEmptyNote          = errors.New("submission note is empty")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrTransitionInFlight = errors.New("another action on this bounty is in progress")
	ErrGlobalScope        = errors.New("bounties can only be created in a thread")
)

type API interface {
	Bounties(ctx context.Context) ([]models.Bounty, error)
	ThreadBounties(ctx context.Context, threadID int64) ([]models.Bounty, error)
	CreateBounty(ctx context.Context, threadID int64, req client.CreateBountyRequest) (int64, error)
	ClaimBounty(ctx context.Context, bountyID int64) error
	SubmitBounty(ctx context.Context, bountyID int64, noteMD string) error
	PayBounty(ctx context.Context, bountyID int64, accept bool) error
}

// Cache persists the last fetched list per scope.
type Cache interface {
	Save(ctx context.Context, scope string, list []models.Bounty) error
	Load(ctx context.Context, scope string) ([]models.Bounty, bool, error)
}

// Scope selects which bounties a controller tracks.
type Scope struct {
	threadID int64
}

func ThreadScope(threadID int64) Scope {
	return Scope{threadID: threadID}
}

func GlobalScope() Scope {
	return Scope{}
}

func (s Scope) IsGlobal() bool {
	return s.threadID == 0
}

func (s Scope) ThreadID() int64 {
	return s.threadID
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "thread:" + strconv.FormatInt(s.threadID, 10)
}

type Options struct {
	Logger logging.Logger
	Cache  Cache
}

type Controller struct {
	api   API
	scope Scope
	log   logging.Logger
	cache Cache

	mu       sync.Mutex
	list     []models.Bounty
	inFlight map[int64]struct{}
	// gen numbers refreshes in start order; applied is the newest one in list.
	gen     uint64
	applied uint64
}

func NewController(api API, scope Scope, opts Options) *Controller {
	return &Controller{
		api:      api,
		scope:    scope,
		log:      logging.OrNop(opts.Logger).With("scope", scope.String()),
		cache:    opts.Cache,
		inFlight: map[int64]struct{}{},
	}
}

func (c *Controller) Scope() Scope {
	return c.scope
}

// List returns the last fetched bounties, newest first.
func (c *Controller) List() []models.Bounty {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Bounty, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Controller) Get(id int64) (models.Bounty, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.list {
		if b.ID == id {
			return b, true
		}
	}
	return models.Bounty{}, false
}

// Refresh re-fetches the list for the scope. On error the previous list is
// kept. A result older than the one already applied is discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	var (
		list []models.Bounty
		err  error
	)
	if c.scope.IsGlobal() {
		list, err = c.api.Bounties(ctx)
	} else {
		list, err = c.api.ThreadBounties(ctx, c.scope.threadID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch bounties: %w", err)
	}

	c.mu.Lock()
	if gen < c.applied {
		c.mu.Unlock()
		c.log.Debug(ctx, "discarding stale bounty refresh", "gen", gen)
		return nil
	}
	c.applied = gen
	c.list = list
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.Save(ctx, c.scope.String(), list); err != nil {
			c.log.Warn(ctx, "failed to cache bounties", "error", err)
		}
	}
	return nil
}

// Restore loads the cached list for the scope.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	if c.cache == nil {
		return false, nil
	}
	list, ok, err := c.cache.Load(ctx, c.scope.String())
	if err != nil {
		return false, fmt.Errorf("failed to load cached bounties: %w", err)
	}
	if !ok {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applied > 0 {
		// A fetched list is already newer than the cache.
		return true, nil
	}
	c.list = list
	return true, nil
}

// Create escrows amount from the caller's wallet into a new bounty on the
// scope's thread.
func (c *Controller) Create(ctx context.Context, amount int64, title, requirementsMD string) (int64, error) {
	if c.scope.IsGlobal() {
		return 0, ErrGlobalScope
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	id, err := c.api.CreateBounty(ctx, c.scope.threadID, client.CreateBountyRequest{
		Amount:         amount,
		Title:          title,
		RequirementsMD: requirementsMD,
	})
	if rerr := c.Refresh(ctx); err == nil && rerr != nil {
		return id, rerr
	}
	return id, err
}

func (c *Controller) Claim(ctx context.Context, id int64) error {
	return c.transition(ctx, id, models.ActionClaim, func() error {
		return c.api.ClaimBounty(ctx, id)
	})
}

// Submit hands in the claimant's work. A blank note is rejected locally.
func (c *Controller) Submit(ctx context.Context, id int64, noteMD string) error {
	if strings.TrimSpace(noteMD) == "" {
		return ErrEmptyNote
	}
	return c.transition(ctx, id, models.ActionSubmit, func() error {
		return c.api.SubmitBounty(ctx, id, noteMD)
	})
}

// Pay settles a submitted bounty: accept releases escrow to the claimant,
// otherwise it is refunded to the creator.
func (c *Controller) Pay(ctx context.Context, id int64, accept bool) error {
	action := models.ActionPay
	if !accept {
		action = models.ActionRefund
	}
	return c.transition(ctx, id, action, func() error {
		return c.api.PayBounty(ctx, id, accept)
	})
}

// transition runs one request for bounty id and reconciles afterwards.
// Server errors are returned unwrapped and win over a reconcile error.
func (c *Controller) transition(ctx context.Context, id int64, action models.BountyAction, do func() error) error {
	c.mu.Lock()
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		return ErrTransitionInFlight
	}
	c.inFlight[id] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}()

	err := do()
	if err != nil {
		c.log.Info(ctx, "bounty action rejected", "bounty_id", id, "action", action, "error", err)
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		if err != nil {
			return err
		}
		return rerr
	}
	return err
}

// Filter selects the envelopes Run reacts to.
func (c *Controller) Filter() events.Filter {
	if c.scope.IsGlobal() {
		return events.ByType(models.EventBountyCreated, models.EventResync)
	}
	return events.ForThread(c.scope.threadID, models.EventBountyCreated)
}

// Run refreshes the list when a bounty is announced in scope or the stream
// resyncs, until ctx is done or sub is closed.
func (c *Controller) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			c.OnPush(ctx, env)
		}
	}
}

func (c *Controller) OnPush(ctx context.Context, env models.Envelope) {
	switch env.Type {
	case models.EventBountyCreated:
		if !c.scope.IsGlobal() && env.ThreadID != c.scope.threadID {
			return
		}
	case models.EventResync:
	default:
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn(ctx, "bounty refresh failed", "error", err)
	}
}
