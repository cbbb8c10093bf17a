package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) Boards(ctx context.Context, _ []string) error {
	boards, err := a.api.Boards(ctx)
	a.observe(err)
	if err != nil {
		return err
	}
	for _, b := range boards {
		sub := ""
		if b.Subscribed {
			sub = " (subscribed)"
		}
		a.printf("#%d %s: %s%s\n", b.ID, b.Slug, b.Title, sub)
	}
	return nil
}

// Subscribe toggles the board subscription: subscribe <board-id> [on|off].
func (a *App) Subscribe(ctx context.Context, args []string) error {
	const usage = "subscribe <board-id> [on|off]"
	id, err := argID(args, 0, usage)
	if err != nil {
		return err
	}
	on := len(args) < 2 || args[1] != "off"
	if err := a.api.SetBoardSubscription(ctx, id, on); err != nil {
		return err
	}
	a.printf("Board %d subscription: %v\n", id, on)
	return nil
}

func (a *App) Threads(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "threads <board-id>")
	if err != nil {
		return err
	}
	threads, err := a.api.Threads(ctx, id)
	a.observe(err)
	if err != nil {
		return err
	}
	for _, t := range threads {
		a.printf("#%d %s\n", t.ID, t.Title)
	}
	return nil
}

func (a *App) NewThread(ctx context.Context, args []string) error {
	const usage = "newthread <board-id> <title>"
	id, err := argID(args, 0, usage)
	if err != nil {
		return err
	}
	title := argText(args, 1)
	if title == "" {
		return usageError{usage}
	}
	t, err := a.api.CreateThread(ctx, id, title)
	if err != nil {
		return err
	}
	a.printf("Created thread #%d\n", t.ID)
	return nil
}

// Open mounts a live view of a thread, replacing the previous one.
func (a *App) Open(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "open <thread-id>")
	if err != nil {
		return err
	}
	a.closeView()
	v, err := a.shell.OpenThread(ctx, id)
	a.observe(err)
	if err != nil {
		return err
	}
	a.view = v
	a.printf("== %s (#%d) ==\n", v.Thread().Title, id)
	return a.Posts(ctx, nil)
}

// Posts prints the open thread as currently synchronized.
func (a *App) Posts(_ context.Context, _ []string) error {
	if a.view == nil {
		return ErrNoThreadOpen
	}
	posts := a.view.Posts()
	if len(posts) == 0 {
		a.println("(no posts)")
	}
	for _, p := range posts {
		a.println(formatPost(p))
	}
	return nil
}

// Post sends a post to the open thread; without inline text the body is
// read as multiple lines.
func (a *App) Post(ctx context.Context, args []string) error {
	if a.view == nil {
		return ErrNoThreadOpen
	}
	content := argText(args, 0)
	if content == "" {
		var err error
		content, err = getBlock(a.reader, a.out, "Post body")
		if err != nil {
			return err
		}
	}
	if content == "" {
		return fmt.Errorf("post body: %w", ErrEmptyInput)
	}
	p, err := a.view.Send(ctx, content)
	if err != nil {
		return err
	}
	a.printf("Posted #%d\n", p.ID)
	return nil
}

func (a *App) Watch(ctx context.Context, args []string) error {
	if a.view == nil {
		return ErrNoThreadOpen
	}
	desired := !a.view.Watching()
	if len(args) > 0 {
		desired = strings.EqualFold(args[0], "on")
	}
	watching, err := a.view.SetWatch(ctx, desired)
	if err != nil {
		return err
	}
	a.printf("Watching thread %d: %v\n", a.view.ThreadID(), watching)
	return nil
}

func (a *App) Hide(ctx context.Context, args []string) error {
	return a.hide(ctx, args, true, "hide <post-id>")
}

func (a *App) Unhide(ctx context.Context, args []string) error {
	return a.hide(ctx, args, false, "unhide <post-id>")
}

func (a *App) hide(ctx context.Context, args []string, hide bool, usage string) error {
	if a.view == nil {
		return ErrNoThreadOpen
	}
	id, err := argID(args, 0, usage)
	if err != nil {
		return err
	}
	return a.view.Hide(ctx, id, hide)
}

func (a *App) Report(ctx context.Context, args []string) error {
	const usage = "report <post-id> <reason>"
	if a.view == nil {
		return ErrNoThreadOpen
	}
	id, err := argID(args, 0, usage)
	if err != nil {
		return err
	}
	reason := argText(args, 1)
	if reason == "" {
		return usageError{usage}
	}
	if err := a.view.Report(ctx, id, reason); err != nil {
		return err
	}
	a.println("Reported")
	return nil
}

func (a *App) CloseThread(_ context.Context, _ []string) error {
	a.closeView()
	return nil
}
