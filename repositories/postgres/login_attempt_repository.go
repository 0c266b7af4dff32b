package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

// LoginAttemptRepository implements the repositories.LoginAttemptRepository interface
type LoginAttemptRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLoginAttemptRepository creates a new login attempt repository
func NewLoginAttemptRepository(db *DB, logger *zap.Logger) repositories.LoginAttemptRepository {
	return &LoginAttemptRepository{
		db:     db,
		logger: logger,
	}
}

// RecordFailure records a failed attempt at the given time
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, username string, at time.Time) error {
	query := `
		INSERT INTO login_attempts (username, attempted_at)
		VALUES ($1, $2)
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, username, at); err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	return nil
}

// CountFailuresSince counts failures recorded at or after since
func (r *LoginAttemptRepository) CountFailuresSince(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE username = $1
		  AND attempted_at >= $2
	`

	var count int
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, username, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}

	return count, nil
}

// Clear removes all recorded failures for username
func (r *LoginAttemptRepository) Clear(ctx context.Context, username string) error {
	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, `DELETE FROM login_attempts WHERE username = $1`, username); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// DeleteOlderThan removes failures recorded before cutoff
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
