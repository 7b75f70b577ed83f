package authz

import "context"

// tenantKey is an unexported key type to prevent external forgery.
type tenantKey struct{}

// WithTenant attaches the resolved tenant id to the context. The value is
// immutable for the lifetime of the request; resolution happens exactly once,
// in the tenant middleware.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext reads the tenant id stashed by the tenant middleware.
func TenantFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// RequireTenant returns the tenant id or ErrTenantContextMissing. There is
// deliberately no default tenant fallback here: operations that can run
// without a tenant are marked exempt in the operation registry instead.
func RequireTenant(ctx context.Context) (string, error) {
	id, ok := TenantFromContext(ctx)
	if !ok {
		return "", ErrTenantContextMissing
	}
	return id, nil
}
