package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktracker/internal/models"
)

// Roles are aggregated on every read so a role change is visible at the
// next login.
const selectAccount = `
	SELECT a.id, a.email, a.username, a.password_hash, a.created_at, a.updated_at,
	       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}'::text[])
	FROM accounts a
	LEFT JOIN account_roles ar ON ar.account_id = a.id
	LEFT JOIN roles r ON r.id = ar.role_id
`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts the account, its role grants and its activity record in one
// transaction.
func (r *AccountRepository) Create(ctx context.Context, account models.Account, activity models.Activity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertAccount = `
		INSERT INTO accounts (id, email, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insertAccount, account.ID, account.Email, account.Username, account.PasswordHash); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("insert account: %w", err)
	}

	const grantRoles = `
		INSERT INTO account_roles (account_id, role_id)
		SELECT $1, id FROM roles WHERE name = ANY($2)
	`
	cmd, err := tx.Exec(ctx, grantRoles, account.ID, account.Roles)
	if err != nil {
		return fmt.Errorf("grant roles: %w", err)
	}
	if int(cmd.RowsAffected()) != len(account.Roles) {
		return ErrRoleNotFound
	}

	const insertActivity = `
		INSERT INTO activities (account_id, activation_id, activated, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insertActivity, account.ID, activity.ActivationID, activity.Activated); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *AccountRepository) Exists(ctx context.Context, email, username string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM accounts WHERE lower(email) = lower($1) OR lower(username) = lower($2)
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("account exists: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE a.id = $1 GROUP BY a.id`, id)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (models.Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE lower(a.username) = lower($1) GROUP BY a.id`, username)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE lower(a.email) = lower($1) GROUP BY a.id`, email)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, current, hash []byte) (int64, error) {
	const query = `
		UPDATE accounts SET password_hash = $3, updated_at = NOW()
		WHERE id = $1 AND password_hash = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, current, hash)
	if err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (models.Account, error) {
	var account models.Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}
