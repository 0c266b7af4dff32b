package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

var userRowColumns = []string{
	"id", "username", "password_hash", "is_active", "account_locked",
	"credentials_expired", "account_expired", "created_at", "updated_at", "roles",
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("returns user with roles", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		id := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT (.+) FROM users u (.+) WHERE u.username = \$1`).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(id, "alice", "$2a$10$hash", true, false, false, false, now, now, "{ADMIN,USER}"))

		user, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.True(t, user.IsActive)
		assert.Equal(t, []string{"ADMIN", "USER"}, user.Roles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user wraps ErrNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(`SELECT (.+) FROM users u`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("driver errors are not ErrNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(`SELECT (.+) FROM users u`).
			WithArgs("alice").
			WillReturnError(sql.ErrConnDone)

		_, err := repo.GetByUsername(ctx, "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user and assigns roles", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())
		user := models.NewUser("alice", "$2a$10$hash", models.RoleUser)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID, "alice", "$2a$10$hash", true, false, false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO roles`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO user_roles`).
			WithArgs(user.ID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username wraps ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())
		user := models.NewUser("alice", "$2a$10$hash")

		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})
}

func TestUserRepository_SetActive(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE users SET is_active`).
		WithArgs("alice", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetActive(ctx, "alice", false))

	mock.ExpectExec(`UPDATE users SET is_active`).
		WithArgs("ghost", false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetActive(ctx, "ghost", false), repositories.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRolesInTransaction(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	tm := NewTransactionManager(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectExec(`DELETE FROM user_roles`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO roles`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		return repo.WithTx(tx).SetRoles(ctx, "alice", []string{models.RoleAdmin})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRolesRollsBackOnMissingUser(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		return repo.SetRoles(ctx, "ghost", nil)
	})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
