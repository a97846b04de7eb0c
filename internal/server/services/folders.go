package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/authz"
	"github.com/avorobjovs/keyguard/internal/server/models"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
)

type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewFolderService(db *sql.DB, m repomanager.RepositoryManager) *FolderService {
	return &FolderService{db: db, repomanager: m}
}

func (s *FolderService) Create(ctx context.Context, userID, name string) (*models.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	folder, err := s.repomanager.Folders(s.db).Create(ctx, &models.Folder{
		UserID: userID,
		Name:   name,
	})
	if err != nil {
		return nil, common.ErrInternal
	}

	return folder, nil
}

func (s *FolderService) List(ctx context.Context, userID string) ([]*models.Folder, error) {
	folders, err := s.repomanager.Folders(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return folders, nil
}

// Get returns a folder together with metadata of the credentials it holds.
// Secrets stay encrypted at rest and are blanked in the result.
func (s *FolderService) Get(ctx context.Context, userID, id string) (*models.Folder, []*models.Credential, error) {
	folder, err := s.fetchOwned(ctx, s.db, userID, id)
	if err != nil {
		return nil, nil, err
	}

	creds, err := s.repomanager.Credentials(s.db).ListByFolder(ctx, id)
	if err != nil {
		return nil, nil, common.ErrInternal
	}
	for _, c := range creds {
		c.Secret = ""
	}

	return folder, creds, nil
}

func (s *FolderService) Rename(ctx context.Context, userID, id, name string) (*models.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	folder, err := s.fetchOwned(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Folders(s.db).Rename(ctx, id, name); err != nil {
		return nil, common.ErrInternal
	}

	folder.Name = name
	return folder, nil
}

// Delete removes a folder and every credential inside it in one transaction.
func (s *FolderService) Delete(ctx context.Context, userID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.fetchOwned(ctx, tx, userID, id); err != nil {
			return err
		}

		if err := s.repomanager.Credentials(tx).DeleteByFolder(ctx, id); err != nil {
			return common.ErrInternal
		}

		if err := s.repomanager.Folders(tx).Delete(ctx, id); err != nil {
			return common.ErrInternal
		}

		return nil
	})
}

// fetchOwned resolves a folder and enforces ownership, preserving the
// NotFound-before-Forbidden ordering.
func (s *FolderService) fetchOwned(ctx context.Context, db dbx.DBTX, userID, id string) (*models.Folder, error) {
	folder, err := s.repomanager.Folders(db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	if err := authz.Authorize(folder, userID); err != nil {
		return nil, err
	}

	return folder, nil
}
