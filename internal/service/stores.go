package service

import (
	"context"

	"tasktracker/internal/models"
)

type AccountStore interface {
	Create(ctx context.Context, account models.Account, activity models.Activity) error
	Exists(ctx context.Context, email, username string) (bool, error)
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByUsername(ctx context.Context, username string) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	// UpdatePassword replaces the hash only while it still equals current.
	UpdatePassword(ctx context.Context, id string, current, hash []byte) (int64, error)
}

type ActivityStore interface {
	FindByAccountID(ctx context.Context, accountID string) (models.Activity, error)
	FindByActivationID(ctx context.Context, activationID string) (models.Activity, error)
	// Activate returns the number of records it flipped to activated.
	Activate(ctx context.Context, activationID string) (int64, error)
}

// RoleStore is queried on every registration; roles are never cached.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (models.Role, error)
}
