// Package folders provides the PostgreSQL-backed repository for credential
// folders.
package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/models"
)

// PostgresRepository implements folder storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	query :=
		`INSERT INTO folders (user_id, name)
		 VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, folder.UserID, folder.Name).Scan(&folder.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT id, user_id, name FROM folders WHERE id = $1`

	folder := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&folder.ID, &folder.UserID, &folder.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Folder, error) {
	query := `SELECT id, user_id, name FROM folders WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		folder := &models.Folder{}
		if err := rows.Scan(&folder.ID, &folder.UserID, &folder.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE folders SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
