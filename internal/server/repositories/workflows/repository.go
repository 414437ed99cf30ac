package workflows

import (
	"context"

	"github.com/dmitrijs2005/bmd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, w *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// ListByUser returns the user's workflows, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Workflow, error)
	// ListByStatus returns workflows in the given status joined with their owners.
	ListByStatus(ctx context.Context, status string) ([]models.WorkflowWithOwner, error)
	UpdateStatus(ctx context.Context, id string, change models.StatusChange) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
