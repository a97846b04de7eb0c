// Package credentials provides the PostgreSQL-backed repository for stored
// vault records. The secret column holds envelopes only; plaintext never
// reaches this package.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/models"
)

// PostgresRepository implements credential storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, folder_id, name, username, secret, url, notes`

func (r *PostgresRepository) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query :=
		`INSERT INTO credentials (user_id, folder_id, name, username, secret, url, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		cred.UserID, folderArg(cred.FolderID), cred.Name, cred.Username, cred.Secret, cred.URL, cred.Notes).Scan(&cred.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	query := `SELECT ` + selectColumns + ` FROM credentials WHERE id = $1`

	cred, err := scanCredential(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query := `SELECT ` + selectColumns + ` FROM credentials WHERE user_id = $1 ORDER BY id`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.Credential, error) {
	query := `SELECT ` + selectColumns + ` FROM credentials WHERE folder_id = $1 ORDER BY id`
	return r.list(ctx, query, folderID)
}

// Update rewrites all mutable columns. The user_id column is deliberately
// not part of the SET list: ownership never changes.
func (r *PostgresRepository) Update(ctx context.Context, cred *models.Credential) error {
	query :=
		`UPDATE credentials
		 SET folder_id = $2, name = $3, username = $4, secret = $5, url = $6, notes = $7
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		cred.ID, folderArg(cred.FolderID), cred.Name, cred.Username, cred.Secret, cred.URL, cred.Notes)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) CountInFolder(ctx context.Context, folderID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM credentials WHERE folder_id = $1`, folderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteByFolder(ctx context.Context, folderID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE folder_id = $1`, folderID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.Credential, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*models.Credential, error) {
	cred := &models.Credential{}
	var folderID sql.NullString

	err := row.Scan(&cred.ID, &cred.UserID, &folderID, &cred.Name, &cred.Username, &cred.Secret, &cred.URL, &cred.Notes)
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		cred.FolderID = &folderID.String
	}
	return cred, nil
}

func folderArg(folderID *string) any {
	if folderID == nil {
		return nil
	}
	return *folderID
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
