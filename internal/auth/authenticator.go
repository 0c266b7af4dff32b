package auth

import (
	"context"
	"strings"

	"github.com/benbjohnson/clock"
)

// TokenVerifier parses and verifies a compact token.
type TokenVerifier interface {
	ParseAndVerify(tokenString string) (*Claims, error)
}

// Authenticator turns a raw Authorization header value into a SecurityContext.
// It never fails the request: every problem yields Anonymous plus the reason.
type Authenticator struct {
	verifier TokenVerifier
	store    CredentialStore
	clock    clock.Clock
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(verifier TokenVerifier, store CredentialStore, clk clock.Clock) *Authenticator {
	if clk == nil {
		clk = clock.New()
	}
	return &Authenticator{
		verifier: verifier,
		store:    store,
		clock:    clk,
	}
}

// Authenticate resolves the header value. The returned error is the reason the
// context is anonymous; it is nil for an authenticated context and for a
// request that carried no Authorization header at all.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (SecurityContext, error) {
	if authorization == "" {
		return Anonymous(), nil
	}

	raw, ok := BearerToken(authorization)
	if !ok {
		return Anonymous(), ErrMalformed
	}

	claims, err := a.verifier.ParseAndVerify(raw)
	if err != nil {
		return Anonymous(), err
	}

	if claims.Expired(a.clock.Now()) {
		return Anonymous(), ErrExpired
	}

	// The principal must still exist and be eligible; a valid signature alone
	// does not outlive a deactivation.
	p, err := a.store.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return Anonymous(), err
	}
	if !p.Eligible() {
		return Anonymous(), ErrAccountDisabled
	}

	return Authenticated(claims.Subject, claims.Roles), nil
}

// BearerToken extracts the token from a "Bearer <token>" header value.
// The scheme match is case-insensitive.
func BearerToken(authorization string) (string, bool) {
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
