// Package notifications keeps the session user's unread count and recent
// notification list in sync with the server.
//
// # Overview
//
// State is replaced wholesale by Refresh and adjusted incrementally by
// pushed notify envelopes and by MarkRead. The recent list is newest
// first, capped at the configured limit and free of duplicate ids. Pushes
// that arrive while a Refresh is in flight are replayed on top of the
// fetched state, so a refresh never erases them.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/events"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

// DefaultLimit is the size of the recent window.
const DefaultLimit = 25

// API is the part of the backend client the manager uses.
type API interface {
	UnreadCount(ctx context.Context) (int, error)
	Notifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID int64) error
}

// Cache persists the last known good state.
type Cache interface {
	Save(ctx context.Context, unread int, recent []models.Notification) error
	Load(ctx context.Context) (unread int, recent []models.Notification, ok bool, err error)
}

// UserSource returns the session user id; 0 means unknown.
type UserSource interface {
	UserID() int64
}

type Snapshot struct {
	Unread int
	Recent []models.Notification
}

type Options struct {
	API    API
	User   UserSource
	Limit  int
	Cache  Cache
	Logger logging.Logger
	// OnChange is called with a copy of the state after every change, outside
	// the manager's lock.
	OnChange func(Snapshot)
}

type Manager struct {
	api      API
	user     UserSource
	limit    int
	cache    Cache
	log      logging.Logger
	onChange func(Snapshot)
	now      func() time.Time

	mu         sync.Mutex
	unread     int
	recent     []models.Notification
	refreshing int
	pending    []models.Notification
	// gen numbers refreshes and confirmed reads in start order; applied is
	// the newest one reflected in the state.
	gen     uint64
	applied uint64
}

func NewManager(opts Options) *Manager {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{
		api:      opts.API,
		user:     opts.User,
		limit:    limit,
		cache:    opts.Cache,
		log:      logging.OrNop(opts.Logger).With("component", "notifications"),
		onChange: opts.OnChange,
		now:      time.Now,
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	recent := make([]models.Notification, len(m.recent))
	copy(recent, m.recent)
	return Snapshot{Unread: m.unread, Recent: recent}
}

// Refresh replaces the state with the server's. On error the previous
// state is kept. A result older than the state already applied is
// discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.refreshing++
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	count, countErr := m.api.UnreadCount(ctx)
	var items []models.Notification
	var listErr error
	if countErr == nil {
		items, listErr = m.api.Notifications(ctx, m.limit)
	}

	m.mu.Lock()
	m.refreshing--
	pending := m.pending
	if m.refreshing == 0 {
		m.pending = nil
	}

	if countErr != nil || listErr != nil {
		m.mu.Unlock()
		if countErr != nil {
			return fmt.Errorf("failed to fetch unread count: %w", countErr)
		}
		return fmt.Errorf("failed to fetch notifications: %w", listErr)
	}
	if gen < m.applied {
		m.mu.Unlock()
		m.log.Debug(ctx, "discarding stale notifications refresh", "gen", gen)
		return nil
	}
	m.applied = gen

	m.unread = max(count, 0)
	m.recent = dedupe(items, m.limit)
	for _, n := range pending {
		m.prependLocked(n)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.changed(ctx, snap)
	return nil
}

// OnPush applies one envelope. Notify envelopes for other users and
// unrelated types are ignored; resync triggers a Refresh.
func (m *Manager) OnPush(ctx context.Context, env models.Envelope) {
	switch env.Type {
	case models.EventNotify:
	case models.EventResync:
		if err := m.Refresh(ctx); err != nil {
			m.log.Warn(ctx, "refresh after resync failed", "error", err)
		}
		return
	default:
		return
	}

	ev, err := env.Notify()
	if err != nil {
		m.log.Debug(ctx, "ignoring malformed notify", "error", err)
		return
	}
	if m.user == nil || ev.UserID == 0 || ev.UserID != m.user.UserID() {
		return
	}

	m.mu.Lock()
	if m.refreshing > 0 {
		m.pending = append(m.pending, ev.Notification)
	}
	if !m.prependLocked(ev.Notification) {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.changed(ctx, snap)
}

// prependLocked adds n at the head unless its id is already present.
func (m *Manager) prependLocked(n models.Notification) bool {
	for _, existing := range m.recent {
		if existing.ID == n.ID {
			return false
		}
	}
	if n.Unread() {
		m.unread++
	}
	m.recent = append([]models.Notification{n}, m.recent...)
	if len(m.recent) > m.limit {
		m.recent = m.recent[:m.limit]
	}
	return true
}

// MarkRead marks a notification read on the server, then locally. The
// count drops by one only if the entry was unread or outside the window.
func (m *Manager) MarkRead(ctx context.Context, id int64) error {
	if err := m.api.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}

	m.mu.Lock()
	// Refreshes started before the server confirmed the read are stale.
	m.gen++
	m.applied = m.gen
	decrement := true
	for i := range m.recent {
		if m.recent[i].ID != id {
			continue
		}
		if !m.recent[i].Unread() {
			decrement = false
			break
		}
		now := m.now().UTC()
		m.recent[i].ReadAt = &now
		break
	}
	if decrement && m.unread > 0 {
		m.unread--
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.changed(ctx, snap)
	return nil
}

// Restore loads the cached state. It reports false when nothing is cached.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	if m.cache == nil {
		return false, nil
	}
	unread, recent, ok, err := m.cache.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load cached notifications: %w", err)
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied > 0 {
		return true, nil
	}
	m.unread = max(unread, 0)
	m.recent = dedupe(recent, m.limit)
	return true, nil
}

// Run applies envelopes from sub until ctx is done or sub is closed.
func (m *Manager) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			m.OnPush(ctx, env)
		}
	}
}

// Filter selects the envelopes Run needs.
func Filter() events.Filter {
	return events.ByType(models.EventNotify, models.EventResync)
}

func (m *Manager) changed(ctx context.Context, snap Snapshot) {
	if m.cache != nil {
		if err := m.cache.Save(ctx, snap.Unread, snap.Recent); err != nil {
			m.log.Warn(ctx, "failed to cache notifications", "error", err)
		}
	}
	if m.onChange != nil {
		m.onChange(snap)
	}
}

func dedupe(items []models.Notification, limit int) []models.Notification {
	seen := make(map[int64]struct{}, len(items))
	out := make([]models.Notification, 0, min(len(items), limit))
	for _, n := range items {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out
}
