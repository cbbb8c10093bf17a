// Package threads implements the live view of one discussion thread.
package threads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/coevo/internal/client/events"
	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/logging"
)

var ErrEmptyPost = errors.New("post content is empty")

// API is the part of the backend client a view uses.
type API interface {
	Thread(ctx context.Context, threadID int64) (models.Thread, error)
	Posts(ctx context.Context, threadID int64) ([]models.Post, error)
	WatchStatus(ctx context.Context, threadID int64) (bool, error)
	CreatePost(ctx context.Context, threadID int64, contentMD string) (models.Post, error)
	SetWatch(ctx context.Context, threadID int64, watch bool) (bool, error)
	HidePost(ctx context.Context, postID int64, hide bool) error
	ReportPost(ctx context.Context, postID int64, reason string) error
}

// View holds the posts of one thread in server order. Posts arriving by
// push and by Send share one id-checked insertion path, so either arrival
// order yields a single entry.
type View struct {
	api      API
	threadID int64
	log      logging.Logger

	mu         sync.Mutex
	thread     models.Thread
	posts      []models.Post
	watching   bool
	closed     bool
	refreshing int
	pending    []models.Post
	// gen numbers refreshes in start order; applied is the newest one
	// whose result is in posts. watchGen stamps the last SetWatch answer.
	gen      uint64
	applied  uint64
	watchGen uint64

	sub    *events.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewView(api API, threadID int64, log logging.Logger) *View {
	return &View{
		api:      api,
		threadID: threadID,
		log:      logging.OrNop(log).With("thread_id", threadID),
	}
}

// Open creates a view subscribed to bus and loads it.
func Open(ctx context.Context, api API, bus *events.Bus, threadID int64, log logging.Logger) (*View, error) {
	v := NewView(api, threadID, log)
	v.Attach(ctx, bus)
	if err := v.Refresh(ctx); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// Attach subscribes the view to pushes for its thread. Call at most once.
func (v *View) Attach(ctx context.Context, bus *events.Bus) {
	ctx, cancel := context.WithCancel(ctx)
	v.sub = bus.Subscribe(events.ForThread(v.threadID, models.EventPostCreated, models.EventPostHidden))
	v.cancel = cancel
	v.done = make(chan struct{})

	go func() {
		defer close(v.done)
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-v.sub.Events():
				if !ok {
					return
				}
				v.OnPush(ctx, env)
			}
		}
	}()
}

func (v *View) ThreadID() int64 {
	return v.threadID
}

func (v *View) Thread() models.Thread {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.thread
}

func (v *View) Posts() []models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Post, len(v.posts))
	copy(out, v.posts)
	return out
}

func (v *View) Watching() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.watching
}

// Refresh reloads thread metadata, posts and watch status. On error the
// previous state is kept. A result older than the one already applied is
// discarded.
func (v *View) Refresh(ctx context.Context) error {
	return v.refresh(ctx, false)
}

func (v *View) refresh(ctx context.Context, fromPush bool) error {
	v.mu.Lock()
	v.refreshing++
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	thread, posts, watching, err := v.fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.refreshing--
	pending := v.pending
	if v.refreshing == 0 {
		v.pending = nil
	}
	if err != nil {
		return err
	}
	if fromPush && v.closed {
		return nil
	}
	if gen < v.applied {
		v.log.Debug(ctx, "discarding stale thread refresh", "gen", gen, "applied", v.applied)
		return nil
	}
	v.applied = gen

	v.thread = thread
	if gen > v.watchGen {
		v.watching = watching
	}
	v.posts = v.posts[:0:0]
	for _, p := range posts {
		v.insertLocked(p)
	}
	for _, p := range pending {
		v.insertLocked(p)
	}
	return nil
}

func (v *View) fetch(ctx context.Context) (models.Thread, []models.Post, bool, error) {
	thread, err := v.api.Thread(ctx, v.threadID)
	if err != nil {
		return models.Thread{}, nil, false, fmt.Errorf("failed to load thread %d: %w", v.threadID, err)
	}
	posts, err := v.api.Posts(ctx, v.threadID)
	if err != nil {
		return models.Thread{}, nil, false, fmt.Errorf("failed to load posts of thread %d: %w", v.threadID, err)
	}
	watching, err := v.api.WatchStatus(ctx, v.threadID)
	if err != nil {
		return models.Thread{}, nil, false, fmt.Errorf("failed to load watch status of thread %d: %w", v.threadID, err)
	}
	return thread, posts, watching, nil
}

// insertLocked appends p unless a post with its id is present.
func (v *View) insertLocked(p models.Post) bool {
	for _, existing := range v.posts {
		if existing.ID == p.ID {
			return false
		}
	}
	v.posts = append(v.posts, p)
	return true
}

// addPost inserts a post from a push or a create response.
func (v *View) addPost(p models.Post) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if v.refreshing > 0 {
		v.pending = append(v.pending, p)
	}
	v.insertLocked(p)
}

// OnPush applies an envelope for this thread. It is a no-op once the view
// is closed.
func (v *View) OnPush(ctx context.Context, env models.Envelope) {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}

	switch env.Type {
	case models.EventPostCreated:
		ev, err := env.PostCreated()
		if err != nil {
			v.log.Debug(ctx, "ignoring malformed post_created", "error", err)
			return
		}
		if ev.ThreadID != v.threadID {
			return
		}
		v.addPost(ev.Post)
	case models.EventPostHidden:
		if env.ThreadID != v.threadID {
			return
		}
		v.rescan(ctx)
	case models.EventResync:
		v.rescan(ctx)
	}
}

func (v *View) rescan(ctx context.Context) {
	if err := v.refresh(ctx, true); err != nil {
		v.log.Warn(ctx, "thread refresh failed", "error", err)
	}
}

// Send creates a post and inserts the response unless the push already
// delivered it.
func (v *View) Send(ctx context.Context, content string) (models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return models.Post{}, ErrEmptyPost
	}
	p, err := v.api.CreatePost(ctx, v.threadID, content)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to create post: %w", err)
	}
	v.addPost(p)
	return p, nil
}

// SetWatch asks the server to (un)watch the thread and adopts its answer.
func (v *View) SetWatch(ctx context.Context, desired bool) (bool, error) {
	watching, err := v.api.SetWatch(ctx, v.threadID, desired)
	if err != nil {
		return v.Watching(), fmt.Errorf("failed to set watch: %w", err)
	}
	v.mu.Lock()
	v.gen++
	v.watchGen = v.gen
	v.watching = watching
	v.mu.Unlock()
	return watching, nil
}

// Hide toggles a post's visibility (moderators) and reloads the thread.
func (v *View) Hide(ctx context.Context, postID int64, hide bool) error {
	if err := v.api.HidePost(ctx, postID, hide); err != nil {
		return fmt.Errorf("failed to hide post %d: %w", postID, err)
	}
	return v.Refresh(ctx)
}

func (v *View) Report(ctx context.Context, postID int64, reason string) error {
	if err := v.api.ReportPost(ctx, postID, reason); err != nil {
		return fmt.Errorf("failed to report post %d: %w", postID, err)
	}
	return nil
}

// Close unsubscribes the view. Its state stays readable.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	if v.sub != nil {
		v.cancel()
		v.sub.Close()
		<-v.done
	}
}
