// Package users manages catalog accounts and exposes them to the auth core.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"github.com/upb/catalog-inventory/services"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// CreateUserInput is the payload for creating an account
type CreateUserInput struct {
	Username string   `validate:"required,min=3,max=50"`
	Password string   `validate:"required,min=8,max=72"`
	Roles    []string `validate:"required,min=1,dive,required,max=50"`
}

// Service handles user management
type Service struct {
	users      repositories.UserRepository
	txManager  repositories.TransactionManager
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates a new user Service
func NewService(users repositories.UserRepository, txManager repositories.TransactionManager, bcryptCost int, logger *zap.Logger) *Service {
	return &Service{
		users:      users,
		txManager:  txManager,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUser hashes the password and stores the account with its roles
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "invalid user", err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Username, hash, auth.NewRoleSet(in.Roles...).Strings()...)

	created, err := services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*models.User, error) {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateUsername
		}
		return nil, services.WrapInternal("failed to create user", err)
	}

	s.logger.Info("user created",
		zap.String("username", created.Username),
		zap.Strings("roles", created.Roles))
	return created, nil
}

// GetByUsername returns the account with username
func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, mapUserError(err, "failed to load user")
	}
	return user, nil
}

// List returns accounts ordered by username
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list users", err)
	}
	return users, nil
}

// SetActive activates or deactivates an account. Outstanding tokens of a
// deactivated account stop working on their next request.
func (s *Service) SetActive(ctx context.Context, username string, active bool) error {
	if err := s.users.SetActive(ctx, username, active); err != nil {
		return mapUserError(err, "failed to update user")
	}
	s.logger.Info("user activation changed",
		zap.String("username", username),
		zap.Bool("active", active))
	return nil
}

// SetRoles replaces the roles of an account. Tokens already issued keep the
// roles they were issued with until they expire.
func (s *Service) SetRoles(ctx context.Context, username string, roles []string) error {
	set := auth.NewRoleSet(roles...)
	if len(set) == 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "at least one role is required", nil)
	}

	err := services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		return s.users.WithTx(tx).SetRoles(ctx, username, set.Strings())
	})
	if err != nil {
		return mapUserError(err, "failed to set roles")
	}

	s.logger.Info("user roles changed",
		zap.String("username", username),
		zap.Strings("roles", set.Strings()))
	return nil
}

func mapUserError(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrUserNotFound
	}
	return services.WrapInternal(message, err)
}
