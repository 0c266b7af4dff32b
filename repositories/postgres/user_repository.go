package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userSelect = `
	SELECT u.id, u.username, u.password_hash, u.is_active, u.account_locked,
	       u.credentials_expired, u.account_expired, u.created_at, u.updated_at,
	       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsActive,
		&user.AccountLocked,
		&user.CredentialsExpired,
		&user.AccountExpired,
		&user.CreatedAt,
		&user.UpdatedAt,
		pq.Array(&user.Roles),
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user and assigns its roles
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, is_active, account_locked,
		                   credentials_expired, account_expired, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.IsActive,
		user.AccountLocked,
		user.CredentialsExpired,
		user.AccountExpired,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := r.assignRoles(ctx, executor, user.ID, user.Roles); err != nil {
		return err
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("username", user.Username))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := userSelect + `
		WHERE u.id = $1
		GROUP BY u.id
	`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user and its roles by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := userSelect + `
		WHERE u.username = $1
		GROUP BY u.id
	`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// List retrieves users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := userSelect + `
		GROUP BY u.id
		ORDER BY u.username
		LIMIT $1 OFFSET $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SetActive activates or deactivates a user
func (r *UserRepository) SetActive(ctx context.Context, username string, active bool) error {
	query := `
		UPDATE users
		SET is_active = $2, updated_at = NOW()
		WHERE username = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, username, active)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if err := requireRowsAffected(result, "user", username); err != nil {
		return err
	}

	r.logger.Debug("user active flag updated", zap.String("username", username), zap.Bool("active", active))
	return nil
}

// SetRoles replaces the role assignments of a user
func (r *UserRepository) SetRoles(ctx context.Context, username string, roles []string) error {
	executor := GetExecutor(ctx, r.db)

	var userID uuid.UUID
	err := executor.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if _, err := executor.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}

	if err := r.assignRoles(ctx, executor, userID, roles); err != nil {
		return err
	}

	r.logger.Debug("user roles replaced", zap.String("username", username), zap.Strings("roles", roles))
	return nil
}

func (r *UserRepository) assignRoles(ctx context.Context, executor Executor, userID uuid.UUID, roles []string) error {
	if len(roles) == 0 {
		return nil
	}

	upsert := `
		INSERT INTO roles (name)
		SELECT unnest($1::text[])
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := executor.ExecContext(ctx, upsert, pq.Array(roles)); err != nil {
		return fmt.Errorf("failed to upsert roles: %w", err)
	}

	assign := `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = ANY($2)
		ON CONFLICT DO NOTHING
	`
	if _, err := executor.ExecContext(ctx, assign, userID, pq.Array(roles)); err != nil {
		return fmt.Errorf("failed to assign roles: %w", err)
	}

	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return &UserRepository{
		db:     r.db,
		logger: r.logger,
	}
}

func requireRowsAffected(result sql.Result, kind, key string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, key, repositories.ErrNotFound)
	}
	return nil
}
