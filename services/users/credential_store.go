package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
)

// CredentialStore resolves principals from the user repository
type CredentialStore struct {
	users repositories.UserRepository
}

// NewCredentialStore creates a CredentialStore backed by users
func NewCredentialStore(users repositories.UserRepository) *CredentialStore {
	return &CredentialStore{users: users}
}

// FindByUsername implements auth.CredentialStore
func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &auth.Error{Kind: auth.KindNoSuchPrincipal, Err: err}
		}
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}
	return PrincipalFromUser(user), nil
}

// PrincipalFromUser converts a stored user into the read-only view the auth core uses
func PrincipalFromUser(user *models.User) *auth.Principal {
	return &auth.Principal{
		Username:           user.Username,
		PasswordHash:       user.PasswordHash,
		Active:             user.IsActive,
		Locked:             user.AccountLocked,
		CredentialsExpired: user.CredentialsExpired,
		AccountExpired:     user.AccountExpired,
		Roles:              auth.NewRoleSet(user.Roles...),
	}
}
