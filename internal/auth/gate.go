package auth

// DenyReason explains a Deny decision.
type DenyReason int

const (
	DenyNone DenyReason = iota
	DenyUnauthorized
	DenyForbidden
)

// String returns the reason name.
func (r DenyReason) String() string {
	switch r {
	case DenyUnauthorized:
		return "unauthorized"
	case DenyForbidden:
		return "forbidden"
	default:
		return "none"
	}
}

// Decision is the Authorization Gate verdict.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Authorize evaluates an any-of role requirement against a security context.
// An empty requirement always allows.
func Authorize(sc SecurityContext, required RoleSet) Decision {
	if len(required) == 0 {
		return Decision{Allowed: true}
	}
	if !sc.IsAuthenticated() {
		return Decision{Reason: DenyUnauthorized}
	}
	if sc.roles.Intersects(required) {
		return Decision{Allowed: true}
	}
	return Decision{Reason: DenyForbidden}
}
