// Package repositories opens the local cache database and wires the
// SQLite repositories on top of it.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/coevo/internal/client/migrations"
	"github.com/dmitrijs2005/coevo/internal/client/repositories/bounties"
	"github.com/dmitrijs2005/coevo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coevo/internal/client/repositories/notifications"
	"github.com/dmitrijs2005/coevo/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	db *sql.DB

	Metadata      metadata.Repository
	Notifications notifications.Repository
	Bounties      bounties.Repository
}

func New(db *sql.DB) *Repositories {
	return &Repositories{
		db:            db,
		Metadata:      metadata.NewSQLiteRepository(db),
		Notifications: notifications.NewSQLiteRepository(db),
		Bounties:      bounties.NewSQLiteRepository(db),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite file at dsn and applies
// migrations.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Wipe deletes every cached row and the stored session (logout).
func (r *Repositories) Wipe(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return dbx.DeleteAll(ctx, tx, "notifications", "bounties", "metadata")
	})
}
