package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/server/models"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
)

// recoveryKeyBytes is the entropy of one guardian recovery key. Keys are
// stored and exchanged as the hex encoding, twice this many characters.
const recoveryKeyBytes = 32

// GuardianService manages the directed trust edges behind account recovery.
// An edge means "guardianID can vouch for protectedEmail"; the recovery key
// attached to it is generated here and is shown only to the guardian.
type GuardianService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewGuardianService(db *sql.DB, m repomanager.RepositoryManager) *GuardianService {
	return &GuardianService{db: db, repomanager: m}
}

// GuardianOverview is the role-split view of the caller's edges. Protecting
// lists edges where the caller is the guardian, recovery keys included.
// ProtectedBy lists edges guarding the caller's own account; their keys are
// omitted, otherwise a user could recover their account alone.
type GuardianOverview struct {
	Protecting  []*models.GuardianEdge
	ProtectedBy []*models.GuardianEdge
}

// Add creates an edge naming guardianEmail as a guardian for the acting
// user's account. The key is generated server-side; the acting user never
// sees it, so the returned edge has it blanked.
func (s *GuardianService) Add(ctx context.Context, userID, guardianEmail string) (*models.GuardianEdge, error) {
	guardianEmail = strings.TrimSpace(guardianEmail)
	if guardianEmail == "" {
		return nil, fmt.Errorf("%w: guardian email is required", common.ErrValidation)
	}

	usersRepo := s.repomanager.Users(s.db)

	actor, err := usersRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}

	guardian, err := usersRepo.GetByEmail(ctx, guardianEmail)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: no account with that email", common.ErrNotFound)
		}
		return nil, common.ErrInternal
	}

	if guardian.ID == actor.ID {
		return nil, fmt.Errorf("%w: cannot be your own guardian", common.ErrValidation)
	}

	key, err := common.MakeRandHexString(recoveryKeyBytes)
	if err != nil {
		return nil, common.ErrInternal
	}

	edge, err := s.repomanager.Guardians(s.db).Create(ctx, &models.GuardianEdge{
		GuardianID:     guardian.ID,
		ProtectedEmail: actor.Email,
		RecoveryKey:    key,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: guardian already registered", common.ErrConflict)
		}
		return nil, common.ErrInternal
	}

	edge.RecoveryKey = ""
	return edge, nil
}

// List returns the caller's edges split by role.
func (s *GuardianService) List(ctx context.Context, userID string) (*GuardianOverview, error) {
	actor, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}

	repo := s.repomanager.Guardians(s.db)

	protecting, err := repo.ListByGuardian(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}

	protectedBy, err := repo.ListByProtectedEmail(ctx, actor.Email)
	if err != nil {
		return nil, common.ErrInternal
	}
	for _, e := range protectedBy {
		e.RecoveryKey = ""
	}

	return &GuardianOverview{Protecting: protecting, ProtectedBy: protectedBy}, nil
}

// Remove deletes an edge. Either party to the edge may remove it; anyone
// else gets Forbidden.
func (s *GuardianService) Remove(ctx context.Context, userID, edgeID string) error {
	repo := s.repomanager.Guardians(s.db)

	edge, err := repo.GetByID(ctx, edgeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}

	if edge.GuardianID != userID {
		actor, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
		if err != nil {
			return common.ErrInternal
		}
		if edge.ProtectedEmail != actor.Email {
			return common.ErrForbidden
		}
	}

	if err := repo.Delete(ctx, edgeID); err != nil {
		return common.ErrInternal
	}

	return nil
}
