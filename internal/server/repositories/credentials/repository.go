package credentials

import (
	"context"

	"github.com/avorobjovs/keyguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	GetByID(ctx context.Context, id string) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
	ListByFolder(ctx context.Context, folderID string) ([]*models.Credential, error)
	Update(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, id string) error
	CountInFolder(ctx context.Context, folderID string) (int64, error)
	DeleteByFolder(ctx context.Context, folderID string) error
}
