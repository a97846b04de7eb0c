// Package guardians provides the PostgreSQL-backed repository for directed
// guardian trust edges.
package guardians

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements guardian edge storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new edge. A duplicate (guardian, protected email) pair
// yields common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, edge *models.GuardianEdge) (*models.GuardianEdge, error) {
	query :=
		`INSERT INTO guardians (user_id, protected_email, recovery_key)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		edge.GuardianID, edge.ProtectedEmail, edge.RecoveryKey).Scan(&edge.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return edge, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.GuardianEdge, error) {
	query := `SELECT id, user_id, protected_email, recovery_key FROM guardians WHERE id = $1`

	edge := &models.GuardianEdge{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&edge.ID, &edge.GuardianID, &edge.ProtectedEmail, &edge.RecoveryKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return edge, nil
}

func (r *PostgresRepository) ListByGuardian(ctx context.Context, guardianID string) ([]*models.GuardianEdge, error) {
	query := `SELECT id, user_id, protected_email, recovery_key FROM guardians WHERE user_id = $1 ORDER BY id`
	return r.list(ctx, query, guardianID)
}

func (r *PostgresRepository) ListByProtectedEmail(ctx context.Context, email string) ([]*models.GuardianEdge, error) {
	query := `SELECT id, user_id, protected_email, recovery_key FROM guardians WHERE protected_email = $1 ORDER BY id`
	return r.list(ctx, query, email)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM guardians WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.GuardianEdge, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.GuardianEdge
	for rows.Next() {
		edge := &models.GuardianEdge{}
		if err := rows.Scan(&edge.ID, &edge.GuardianID, &edge.ProtectedEmail, &edge.RecoveryKey); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
