package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktracker/internal/models"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) FindByAccountID(ctx context.Context, accountID string) (models.Activity, error) {
	const query = `
		SELECT account_id, activation_id, activated, created_at, updated_at
		FROM activities WHERE account_id = $1
	`
	return r.findOne(ctx, query, accountID)
}

func (r *ActivityRepository) FindByActivationID(ctx context.Context, activationID string) (models.Activity, error) {
	const query = `
		SELECT account_id, activation_id, activated, created_at, updated_at
		FROM activities WHERE activation_id = $1
	`
	return r.findOne(ctx, query, activationID)
}

// Activate flips the flag only while it is still false, so of two racing
// calls exactly one observes a single affected row.
func (r *ActivityRepository) Activate(ctx context.Context, activationID string) (int64, error) {
	const query = `
		UPDATE activities SET activated = TRUE, updated_at = NOW()
		WHERE activation_id = $1 AND activated = FALSE
	`
	cmd, err := r.pool.Exec(ctx, query, activationID)
	if err != nil {
		return 0, fmt.Errorf("activate: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *ActivityRepository) findOne(ctx context.Context, query, arg string) (models.Activity, error) {
	var activity models.Activity
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&activity.AccountID,
		&activity.ActivationID,
		&activity.Activated,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, fmt.Errorf("find activity: %w", err)
	}
	return activity, nil
}
