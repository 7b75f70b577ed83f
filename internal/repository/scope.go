package repository

import (
	"context"
	"errors"

	"github.com/waranyu/saas-admin-platform/internal/authz"
)

// ErrTenantScopeMissing is returned when a tenant-scoped repository is
// called without a tenant on the context. Queries never run unscoped.
var ErrTenantScopeMissing = errors.New("tenant scope missing from context")

// tenantScope extracts the tenant ID a query must be scoped to.
func tenantScope(ctx context.Context) (string, error) {
	tenantID, ok := authz.TenantFromContext(ctx)
	if !ok || tenantID == "" {
		return "", ErrTenantScopeMissing
	}
	return tenantID, nil
}
