// Package notifications persists the last-known-good notification state
// (unread count plus the recent window) in the local cache database so the
// CLI can show it before the first successful refresh or while offline.
//
// Save replaces the stored state atomically inside one transaction; Load
// returns ok=false until a state has been saved.
//
// Typical Usage
//
//	repo := notifications.NewSQLiteRepository(db)
//	_ = repo.Save(ctx, unread, recent)
//	unread, recent, ok, _ := repo.Load(ctx)
package notifications
