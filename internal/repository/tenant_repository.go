package repository

import (
	"context"

	"github.com/waranyu/saas-admin-platform/internal/domain"
)

// TenantRepository defines the interface for tenant registry operations.
// Tenants are platform-level records and are not scoped by tenant context.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	List(ctx context.Context, page, limit int, isActive *bool, search string) ([]*domain.Tenant, int, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
	SoftDelete(ctx context.Context, id string) error
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}
