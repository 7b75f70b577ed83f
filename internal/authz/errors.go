package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no principal is attached to the request.
	ErrUnauthenticated = errors.New("authz: no principal in context")

	// ErrTenantContextMissing means a tenant-scoped operation ran without a
	// resolved tenant. Surfaced as a client error, never defaulted away.
	ErrTenantContextMissing = errors.New("authz: tenant context missing")

	// ErrOwnershipPredicateMissing means a descriptor requires ownership
	// evaluation but declares no IsOwn predicate. This is a configuration
	// bug, not a legitimate deny.
	ErrOwnershipPredicateMissing = errors.New("authz: possession requires IsOwn predicate")
)

// ConfigError marks a malformed descriptor or registry entry. It indicates
// a bug in the operation wiring and must never be reported as a deny.
type ConfigError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authz: invalid configuration for %q: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("authz: invalid configuration for %q: %s", e.Op, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PermissionDeniedError is the terminal deny for a request. It carries the
// failing descriptor's resource and action for audit logging.
type PermissionDeniedError struct {
	Principal Principal
	Resource  string
	Action    ActionVerb
	Reason    string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("authz: %s denied %s on %s: %s", e.Principal, e.Action, e.Resource, e.Reason)
}
