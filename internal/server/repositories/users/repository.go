// Package users persists registered users.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bmd/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	EmailExists(ctx context.Context, email string, excludeID string) (bool, error)
	Update(ctx context.Context, id string, upd models.UserUpdate, now time.Time) error
	Delete(ctx context.Context, id string) error
}
