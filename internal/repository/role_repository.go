package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktracker/internal/models"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (models.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name = $1`

	var role models.Role
	if err := r.pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, fmt.Errorf("find role: %w", err)
	}
	return role, nil
}
