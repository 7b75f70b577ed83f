package repository

import (
	"context"

	"github.com/waranyu/saas-admin-platform/internal/domain"
)

// UserRepository defines the interface for user operations. All methods
// except GetByEmailAnyTenant are scoped to the tenant on the context:
// a lookup for a row belonging to another tenant reports it as absent.
type UserRepository interface {
	// Create inserts the user under the tenant on the context, overwriting
	// any tenant ID already set on the record.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page, limit int, role string, isActive *bool, search string) ([]*domain.User, int, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// GetByEmailAnyTenant and GetByIDAnyTenant look a user up across all
	// tenants. They exist for credential verification and session refresh,
	// which run before any tenant is resolved.
	GetByEmailAnyTenant(ctx context.Context, email string) (*domain.User, error)
	GetByIDAnyTenant(ctx context.Context, id string) (*domain.User, error)
}
