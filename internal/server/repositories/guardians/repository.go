package guardians

import (
	"context"

	"github.com/avorobjovs/keyguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, edge *models.GuardianEdge) (*models.GuardianEdge, error)
	GetByID(ctx context.Context, id string) (*models.GuardianEdge, error)
	ListByGuardian(ctx context.Context, guardianID string) ([]*models.GuardianEdge, error)
	ListByProtectedEmail(ctx context.Context, email string) ([]*models.GuardianEdge, error)
	Delete(ctx context.Context, id string) error
}
