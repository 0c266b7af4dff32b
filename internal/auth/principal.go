package auth

import "context"

// Principal is an identity as resolved from the CredentialStore.
// The core only reads it.
type Principal struct {
	Username           string
	PasswordHash       string
	Active             bool
	Locked             bool
	CredentialsExpired bool
	AccountExpired     bool
	Roles              RoleSet
}

// Eligible reports whether the principal may authenticate.
func (p *Principal) Eligible() bool {
	return p != nil && p.Active && !p.Locked && !p.CredentialsExpired && !p.AccountExpired
}

// CredentialStore resolves a username to a Principal. Implementations return an
// error matching ErrNoSuchPrincipal when the username is unknown; any other
// error is treated as an infrastructure failure.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*Principal, error)
}
