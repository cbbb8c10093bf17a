package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/dmitrijs2005/coevo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coevo/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, unread int, recent []models.Notification) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notifications`); err != nil {
			return fmt.Errorf("failed to clear notifications: %w", err)
		}

		query := `INSERT INTO notifications (id, position, thread_id, event_type, payload, created_at, read_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		for pos, n := range recent {
			var readAt *string
			if n.ReadAt != nil {
				s := n.ReadAt.UTC().Format(time.RFC3339Nano)
				readAt = &s
			}
			_, err := tx.ExecContext(ctx, query, n.ID, pos, n.ThreadID, n.EventType, []byte(n.Payload),
				n.CreatedAt.UTC().Format(time.RFC3339Nano), readAt)
			if err != nil {
				return fmt.Errorf("failed to insert notification %d: %w", n.ID, err)
			}
		}

		meta := metadata.NewSQLiteRepository(tx)
		return meta.Set(ctx, metadata.KeyNotificationUnread, []byte(strconv.Itoa(unread)))
	})
}

func (r *SQLiteRepository) Load(ctx context.Context) (int, []models.Notification, bool, error) {
	raw, err := metadata.NewSQLiteRepository(r.db).Get(ctx, metadata.KeyNotificationUnread)
	if err != nil {
		return 0, nil, false, err
	}
	if raw == nil {
		return 0, nil, false, nil
	}
	unread, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, nil, false, fmt.Errorf("corrupt unread count %q: %w", raw, err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, thread_id, event_type, payload, created_at, read_at
		FROM notifications ORDER BY position`)
	if err != nil {
		return 0, nil, false, fmt.Errorf("failed to select notifications: %w", err)
	}
	defer rows.Close()

	result := []models.Notification{}
	for rows.Next() {
		var (
			n         models.Notification
			threadID  sql.NullInt64
			payload   []byte
			createdAt string
			readAt    sql.NullString
		)
		if err := rows.Scan(&n.ID, &threadID, &n.EventType, &payload, &createdAt, &readAt); err != nil {
			return 0, nil, false, fmt.Errorf("failed to scan notification row: %w", err)
		}
		if threadID.Valid {
			id := threadID.Int64
			n.ThreadID = &id
		}
		if len(payload) > 0 {
			n.Payload = payload
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return 0, nil, false, fmt.Errorf("bad created_at for %d: %w", n.ID, err)
		}
		if readAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, readAt.String)
			if err != nil {
				return 0, nil, false, fmt.Errorf("bad read_at for %d: %w", n.ID, err)
			}
			n.ReadAt = &t
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, false, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return unread, result, true, nil
}
