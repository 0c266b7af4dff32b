package auth

// SecurityContext is the per-request authentication state. The zero value is
// unauthenticated.
type SecurityContext struct {
	username string
	roles    RoleSet
}

// Anonymous returns an unauthenticated context.
func Anonymous() SecurityContext {
	return SecurityContext{}
}

// Authenticated returns a context for username holding roles.
func Authenticated(username string, roles RoleSet) SecurityContext {
	return SecurityContext{username: username, roles: NewRoleSet(roles...)}
}

// IsAuthenticated reports whether the context carries a principal.
func (s SecurityContext) IsAuthenticated() bool {
	return s.username != ""
}

// Username returns the authenticated username, or "".
func (s SecurityContext) Username() string {
	return s.username
}

// Roles returns a copy of the role set.
func (s SecurityContext) Roles() RoleSet {
	return RoleSet(s.roles.Strings())
}
