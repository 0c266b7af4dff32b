package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialValidator verifies username/password pairs against a CredentialStore.
type CredentialValidator struct {
	store     CredentialStore
	dummyHash []byte
}

// NewCredentialValidator creates a validator. A throwaway bcrypt hash is
// prepared so unknown usernames cost one hash comparison like known ones.
func NewCredentialValidator(store CredentialStore) (*CredentialValidator, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to seed dummy hash: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword(seed, bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to build dummy hash: %w", err)
	}
	return &CredentialValidator{store: store, dummyHash: dummy}, nil
}

// Validate returns the principal when username and password match and the
// account is eligible. Credential failures are ErrNoSuchPrincipal,
// ErrInvalidCredentials or ErrAccountDisabled; other errors come from the store.
func (v *CredentialValidator) Validate(ctx context.Context, username, password string) (*Principal, error) {
	p, err := v.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNoSuchPrincipal) {
			_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
			return nil, ErrNoSuchPrincipal
		}
		return nil, fmt.Errorf("failed to look up principal: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, newError(KindInvalidCredentials, err)
	}

	// Account state is only consulted after a successful comparison.
	if !p.Eligible() {
		return nil, ErrAccountDisabled
	}

	return p, nil
}

// HashPassword hashes a password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
