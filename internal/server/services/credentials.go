package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/cryptox"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/authz"
	"github.com/avorobjovs/keyguard/internal/server/models"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
)

// CredentialService implements vault record operations. Every call that
// touches a secret takes userSecret, the caller's plaintext login password
// supplied per request; the service derives the encryption key from it and
// forgets both when the call returns.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	deriver     *cryptox.KeyDeriver
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, deriver *cryptox.KeyDeriver) *CredentialService {
	return &CredentialService{db: db, repomanager: m, deriver: deriver}
}

// CredentialInput carries the fields accepted at record creation.
type CredentialInput struct {
	Name     string
	Username string
	Secret   string
	URL      string
	Notes    string
	FolderID *string
}

// CredentialUpdate carries a partial update; nil fields are left unchanged.
// ClearFolder moves the record to the vault root and wins over FolderID.
type CredentialUpdate struct {
	Name        *string
	Username    *string
	Secret      *string
	URL         *string
	Notes       *string
	FolderID    *string
	ClearFolder bool
}

// checkFolder resolves a folder and verifies the caller owns it. Used before
// attaching a credential to it.
func (s *CredentialService) checkFolder(ctx context.Context, db dbx.DBTX, folderID, userID string) error {
	folder, err := s.repomanager.Folders(db).GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}
	return authz.Authorize(folder, userID)
}

// collapseIfEmpty removes a folder once its last credential is gone. Must
// run on the same transaction as the removal that may have emptied it.
func (s *CredentialService) collapseIfEmpty(ctx context.Context, tx dbx.DBTX, folderID string) error {
	count, err := s.repomanager.Credentials(tx).CountInFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.repomanager.Folders(tx).Delete(ctx, folderID)
}

// Create encrypts the secret under the caller's derived key and stores the
// record. The returned model carries the plaintext secret, not the envelope.
func (s *CredentialService) Create(ctx context.Context, userID, userSecret string, input *CredentialInput) (*models.Credential, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if input.Secret == "" {
		return nil, fmt.Errorf("%w: secret is required", common.ErrValidation)
	}

	if input.FolderID != nil {
		if err := s.checkFolder(ctx, s.db, *input.FolderID, userID); err != nil {
			return nil, err
		}
	}

	key := s.deriver.Derive(userSecret)
	defer common.WipeByteArray(key)

	envelope, err := cryptox.EncryptSecret(input.Secret, key)
	if err != nil {
		return nil, common.ErrInternal
	}

	cred, err := s.repomanager.Credentials(s.db).Create(ctx, &models.Credential{
		UserID:   userID,
		FolderID: input.FolderID,
		Name:     input.Name,
		Username: input.Username,
		Secret:   envelope,
		URL:      input.URL,
		Notes:    input.Notes,
	})
	if err != nil {
		return nil, common.ErrInternal
	}

	cred.Secret = input.Secret
	return cred, nil
}

// Get returns one record with its secret decrypted.
func (s *CredentialService) Get(ctx context.Context, userID, userSecret, id string) (*models.Credential, error) {
	cred, err := s.repomanager.Credentials(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	if err := authz.Authorize(cred, userID); err != nil {
		return nil, err
	}

	key := s.deriver.Derive(userSecret)
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.DecryptSecret(cred.Secret, key)
	if err != nil {
		return nil, err
	}

	cred.Secret = plaintext
	return cred, nil
}

// List returns the caller's records with secrets blanked. Listing never
// decrypts, so it works without the vault secret.
func (s *CredentialService) List(ctx context.Context, userID string) ([]*models.Credential, error) {
	creds, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}

	for _, c := range creds {
		c.Secret = ""
	}
	return creds, nil
}

// Update applies a partial update. A changed secret is re-encrypted under
// the caller's key; a folder move that empties the previous folder deletes
// that folder within the same transaction.
func (s *CredentialService) Update(ctx context.Context, userID, userSecret, id string, upd *CredentialUpdate) (*models.Credential, error) {
	var updated *models.Credential

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Credentials(tx)

		cred, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrNotFound
			}
			return common.ErrInternal
		}

		if err := authz.Authorize(cred, userID); err != nil {
			return err
		}

		prevFolderID := cred.FolderID

		if upd.Name != nil {
			if *upd.Name == "" {
				return fmt.Errorf("%w: name is required", common.ErrValidation)
			}
			cred.Name = *upd.Name
		}
		if upd.Username != nil {
			cred.Username = *upd.Username
		}
		if upd.URL != nil {
			cred.URL = *upd.URL
		}
		if upd.Notes != nil {
			cred.Notes = *upd.Notes
		}

		if upd.Secret != nil {
			if *upd.Secret == "" {
				return fmt.Errorf("%w: secret is required", common.ErrValidation)
			}
			key := s.deriver.Derive(userSecret)
			defer common.WipeByteArray(key)

			envelope, err := cryptox.EncryptSecret(*upd.Secret, key)
			if err != nil {
				return common.ErrInternal
			}
			cred.Secret = envelope
		}

		switch {
		case upd.ClearFolder:
			cred.FolderID = nil
		case upd.FolderID != nil:
			if err := s.checkFolder(ctx, tx, *upd.FolderID, userID); err != nil {
				return err
			}
			cred.FolderID = upd.FolderID
		}

		if err := repo.Update(ctx, cred); err != nil {
			return common.ErrInternal
		}

		if prevFolderID != nil && !sameFolder(prevFolderID, cred.FolderID) {
			if err := s.collapseIfEmpty(ctx, tx, *prevFolderID); err != nil {
				return common.ErrInternal
			}
		}

		cred.Secret = ""
		updated = cred
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a record and collapses its folder if the record was the
// last one in it. Both steps run in one transaction.
func (s *CredentialService) Delete(ctx context.Context, userID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Credentials(tx)

		cred, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrNotFound
			}
			return common.ErrInternal
		}

		if err := authz.Authorize(cred, userID); err != nil {
			return err
		}

		if err := repo.Delete(ctx, id); err != nil {
			return common.ErrInternal
		}

		if cred.FolderID != nil {
			if err := s.collapseIfEmpty(ctx, tx, *cred.FolderID); err != nil {
				return common.ErrInternal
			}
		}

		return nil
	})
}

func sameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
