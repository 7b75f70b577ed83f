package authz

import (
	"context"
	"fmt"
)

// Role is the closed set of roles a principal can hold.
type Role string

const (
	// RoleUser is a regular tenant member.
	RoleUser Role = "user"
	// RoleAdmin manages resources inside its own tenant.
	RoleAdmin Role = "admin"
	// RoleRoot is the platform operator; it is not bound to a tenant.
	RoleRoot Role = "root"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleRoot:
		return true
	default:
		return false
	}
}

// Principal is the authenticated actor for a single request.
// It is immutable and request-scoped; never cache it across requests.
type Principal struct {
	ID       string
	Email    string
	Role     Role
	TenantID string
}

// IsRoot reports whether the principal is a platform operator.
func (p Principal) IsRoot() bool {
	return p.Role == RoleRoot
}

// String returns a stable representation for audit logs.
func (p Principal) String() string {
	if p.ID == "" {
		return "anonymous"
	}
	return fmt.Sprintf("%s:%s", p.Role, p.ID)
}

// principalKey is an unexported key type to prevent external forgery.
type principalKey struct{}

// WithPrincipal attaches the principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reads the principal set by the authentication layer.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// MustPrincipal reads the principal, panicking if absent. Only for call
// sites that run strictly behind the authentication middleware.
func MustPrincipal(ctx context.Context) Principal {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("authz: no principal in context")
	}
	return p
}

// RequirePrincipal returns ErrUnauthenticated if no principal is attached.
func RequirePrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}
