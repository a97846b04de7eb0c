package folders

import (
	"context"

	"github.com/avorobjovs/keyguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Folder, error)
	Rename(ctx context.Context, id string, name string) error
	Delete(ctx context.Context, id string) error
}
