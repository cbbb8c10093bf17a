package cli

import "context"

func (a *App) Notifications(_ context.Context, _ []string) error {
	snap := a.shell.Notifications().Snapshot()
	a.printf("%d unread\n", snap.Unread)
	for _, n := range snap.Recent {
		a.println(formatNotification(n))
	}
	return nil
}

func (a *App) Read(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "read <notification-id>")
	if err != nil {
		return err
	}
	err = a.shell.Notifications().MarkRead(ctx, id)
	a.observe(err)
	return err
}
