package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/models"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
)

// RecoveryService implements guardian-based account recovery: two valid keys
// from two distinct guardian edges let anyone reset the login password of
// the protected account. The endpoint driving this is unauthenticated, so
// the keys are the whole proof.
//
// Recovery replaces the login hash only. Existing envelopes stay encrypted
// under the key derived from the old password and become unreadable; that is
// the accepted cost of never storing key material.
type RecoveryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRecoveryService(db *sql.DB, m repomanager.RepositoryManager) *RecoveryService {
	return &RecoveryService{db: db, repomanager: m}
}

// matchEdge reports the index of the edge whose recovery key equals the
// candidate, or -1. Comparison is constant-time per edge.
func matchEdge(edges []*models.GuardianEdge, key string) int {
	match := -1
	for i, e := range edges {
		if subtle.ConstantTimeCompare([]byte(e.RecoveryKey), []byte(key)) == 1 && match == -1 {
			match = i
		}
	}
	return match
}

// Recover resets the password of the account registered under email. key1
// and key2 must match two distinct guardian edges protecting that account.
// Accounts with fewer than two guardians cannot be recovered at all.
func (s *RecoveryService) Recover(ctx context.Context, email, key1, key2, newPassword string) (*models.User, error) {
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	edges, err := s.repomanager.Guardians(s.db).ListByProtectedEmail(ctx, user.Email)
	if err != nil {
		return nil, common.ErrInternal
	}

	if len(edges) < 2 {
		return nil, common.ErrInsufficientGuardians
	}

	first := matchEdge(edges, key1)
	second := matchEdge(edges, key2)
	if first == -1 || second == -1 || first == second {
		return nil, common.ErrInvalidKeys
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).UpdatePasswordHash(ctx, user.ID, string(hash))
	})
	if err != nil {
		return nil, common.ErrInternal
	}

	return user, nil
}
