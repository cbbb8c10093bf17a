package bounties

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

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

func (r *SQLiteRepository) Save(ctx context.Context, scope string, list []models.Bounty) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bounties WHERE scope = ?`, scope); err != nil {
			return fmt.Errorf("failed to clear bounties[%s]: %w", scope, err)
		}

		for pos, b := range list {
			data, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode bounty %d: %w", b.ID, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO bounties (scope, id, position, data) VALUES (?, ?, ?, ?)`,
				scope, b.ID, pos, data)
			if err != nil {
				return fmt.Errorf("failed to insert bounty %d: %w", b.ID, err)
			}
		}

		return metadata.NewSQLiteRepository(tx).Set(ctx, metadata.BountiesKey(scope), []byte{1})
	})
}

func (r *SQLiteRepository) Load(ctx context.Context, scope string) ([]models.Bounty, bool, error) {
	marker, err := metadata.NewSQLiteRepository(r.db).Get(ctx, metadata.BountiesKey(scope))
	if err != nil {
		return nil, false, err
	}
	if marker == nil {
		return nil, false, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT data FROM bounties WHERE scope = ? ORDER BY position`, scope)
	if err != nil {
		return nil, false, fmt.Errorf("failed to select bounties[%s]: %w", scope, err)
	}
	defer rows.Close()

	result := []models.Bounty{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, false, fmt.Errorf("failed to scan bounty row: %w", err)
		}
		var b models.Bounty
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, false, fmt.Errorf("decode cached bounty: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to iterate bounties: %w", err)
	}
	return result, true, nil
}
